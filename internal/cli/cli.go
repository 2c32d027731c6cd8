// Package cli implements lmsctl, the command-line front end of the LMS
// client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dev-tahsin7/LMS-TestApp/internal/api"
	"github.com/dev-tahsin7/LMS-TestApp/internal/auth"
	"github.com/dev-tahsin7/LMS-TestApp/internal/service"
	"github.com/dev-tahsin7/LMS-TestApp/internal/session"
)

var (
	// ErrUsage marks a malformed command line. lmsctl exits with status 2.
	ErrUsage = errors.New("usage")
	// ErrNotSignedIn is returned by commands that need a signed-in user.
	ErrNotSignedIn = errors.New("not signed in; run `lmsctl login`")
)

// Deps are the services the commands run against.
type Deps struct {
	Auth       *auth.Manager
	Dashboard  *service.DashboardService
	Catalog    *service.CatalogService
	Courses    *service.CourseService
	Store      session.Store
	APIBaseURL string
}

// Globals are the flags accepted before the subcommand.
type Globals struct {
	APIURL         string
	SessionBackend string
	SessionFile    string
	LogLevel       string
	JSON           bool
	Args           []string
}

// ParseGlobals parses the global flags. The remaining arguments, starting
// with the subcommand, are left in Args.
func ParseGlobals(args []string, stderr io.Writer) (Globals, error) {
	var g Globals
	fs := flag.NewFlagSet("lmsctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&g.APIURL, "api-url", "", "LMS API base URL (overrides LMS_API_BASE_URL)")
	fs.StringVar(&g.SessionBackend, "session-backend", "", "session store: file, redis or memory (overrides LMS_SESSION_BACKEND)")
	fs.StringVar(&g.SessionFile, "session-file", "", "session file path (overrides LMS_SESSION_FILE)")
	fs.StringVar(&g.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	fs.BoolVar(&g.JSON, "json", false, "print JSON instead of text")
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Globals{}, err
		}
		return Globals{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	g.Args = fs.Args()
	if len(g.Args) == 0 {
		fs.Usage()
		return Globals{}, fmt.Errorf("%w: missing command", ErrUsage)
	}
	return g, nil
}

// Overrides maps the set flags onto their environment variables.
func (g Globals) Overrides() map[string]string {
	return map[string]string{
		"LMS_API_BASE_URL":    g.APIURL,
		"LMS_SESSION_BACKEND": g.SessionBackend,
		"LMS_SESSION_FILE":    g.SessionFile,
		"LOG_LEVEL":           g.LogLevel,
	}
}

// CLI runs lmsctl subcommands.
type CLI struct {
	deps   Deps
	stdout io.Writer
	stderr io.Writer
	stdin  *bufio.Reader
	json   bool
	now    func() time.Time
}

// New creates a CLI writing command output to stdout and prompts and hints
// to stderr.
func New(deps Deps, stdout, stderr io.Writer, stdin io.Reader, jsonOutput bool) *CLI {
	return &CLI{
		deps:   deps,
		stdout: stdout,
		stderr: stderr,
		stdin:  bufio.NewReader(stdin),
		json:   jsonOutput,
		now:    time.Now,
	}
}

// Navigator returns the front-end navigator for the session context: it
// tells the user to sign in again.
func (c *CLI) Navigator() api.Navigator {
	return api.NavigatorFunc(func(context.Context) {
		fmt.Fprintln(c.stderr, "Your session has expired. Run `lmsctl login` to sign in again.")
	})
}

type command struct {
	usage   string
	summary string
	run     func(c *CLI, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"login":      {"login --email EMAIL [--password PASSWORD]", "sign in", (*CLI).login},
		"signup":     {"signup --username U --email E --first-name F --last-name L [--password P]", "create an account", (*CLI).signup},
		"logout":     {"logout", "sign out and forget the stored session", (*CLI).logout},
		"whoami":     {"whoami", "show the signed-in user", (*CLI).whoami},
		"profile":    {"profile [--username U] [--email E] [--first-name F] [--last-name L]", "show or update the profile", (*CLI).profile},
		"dashboard":  {"dashboard", "enrolled courses with progress", (*CLI).dashboard},
		"enrolled":   {"enrolled", "alias for dashboard", (*CLI).dashboard},
		"courses":    {"courses [--page N] [--per-page N]", "list the catalog", (*CLI).courses},
		"course":     {"course ID|SLUG", "show a course with its lessons", (*CLI).course},
		"enroll":     {"enroll ID|SLUG", "enroll in a course", (*CLI).enroll},
		"complete":   {"complete LESSON_ID", "mark a lesson complete", (*CLI).complete},
		"incomplete": {"incomplete LESSON_ID", "mark a lesson incomplete", (*CLI).incomplete},
		"toggle":     {"toggle COURSE LESSON_ID", "flip a lesson's completion within a course", (*CLI).toggle},
		"lesson":     {"lesson LESSON_ID [--html]", "show a lesson", (*CLI).lesson},
		"status":     {"status", "inspect the stored session without contacting the API", (*CLI).status},
	}
}

// Run executes the subcommand named by args[0].
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", ErrUsage)
	}
	if args[0] == "help" {
		printCommands(c.stdout)
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	return cmd.run(c, ctx, args[1:])
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: lmsctl [flags] COMMAND [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
	fmt.Fprintln(w)
	printCommands(w)
}

func printCommands(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Commands:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-11s %s\n", name, commands[name].summary)
	}
}

// newFlagSet returns a subcommand flag set whose errors are usage errors.
func (c *CLI) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() {
		fmt.Fprintf(c.stderr, "Usage: lmsctl %s\n", commands[name].usage)
		fs.PrintDefaults()
	}
	return fs
}

func (c *CLI) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
	}
	return nil
}

// positional parses flags and requires exactly n positional arguments.
func (c *CLI) positional(fs *flag.FlagSet, args []string, n int) ([]string, error) {
	if err := c.parse(fs, args); err != nil {
		return nil, err
	}
	if fs.NArg() != n {
		fs.Usage()
		return nil, fmt.Errorf("%w: lmsctl %s", ErrUsage, commands[fs.Name()].usage)
	}
	return fs.Args(), nil
}

// ensureSession resumes the stored session once per process.
func (c *CLI) ensureSession(ctx context.Context) {
	if c.deps.Auth.IsLoading() {
		c.deps.Auth.Init(ctx)
	}
}

// readPassword returns the flag value, then $LMS_PASSWORD, then a line read
// from stdin.
func (c *CLI) readPassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if p := os.Getenv("LMS_PASSWORD"); p != "" {
		return p, nil
	}
	fmt.Fprint(c.stderr, "Password: ")
	line, err := c.stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
