package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dev-tahsin7/LMS-TestApp/internal/session"
)

// emit writes v as indented JSON in --json mode, otherwise runs text
// against an aligned writer.
func (c *CLI) emit(v any, text func(w io.Writer)) error {
	if c.json {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

// describeToken renders a stored token for `lmsctl status`.
func describeToken(raw string, info *session.TokenInfo, now time.Time) string {
	switch {
	case raw == "":
		return "none"
	case info == nil:
		return "present (not a JWT)"
	case info.ExpiresAt.IsZero():
		return "present (no expiry)"
	case info.Expired(now):
		return fmt.Sprintf("expired at %s", info.ExpiresAt.Local().Format(time.RFC3339))
	default:
		return fmt.Sprintf("valid until %s (%s left)",
			info.ExpiresAt.Local().Format(time.RFC3339),
			info.Remaining(now).Round(time.Second))
	}
}
