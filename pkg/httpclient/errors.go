package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	apperrors "github.com/dev-tahsin7/LMS-TestApp/pkg/errors"
)

// envelopeError is the {"error":{"code","message"}} body shape.
type envelopeError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// detailError is the {"detail","code"} body shape used by the LMS backend for
// authentication and permission failures.
type detailError struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an AppError. The response body is fully consumed and closed.
//
// Three body shapes are understood: an error envelope, a detail object, and a
// map of field names to message lists. Anything else becomes the message
// verbatim (trimmed), or the status text when the body is empty.
func ParseResponseError(resp *http.Response, serviceName string) *apperrors.AppError {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		appErr := apperrors.FromStatus(resp.StatusCode, "", fmt.Sprintf("%s: failed to read error body", serviceName))
		if appErr.Err == nil {
			appErr.Err = err
		}
		return appErr
	}
	return ParseErrorBody(resp.StatusCode, body, serviceName)
}

// ParseErrorBody maps an already-read error body to an AppError.
func ParseErrorBody(status int, body []byte, serviceName string) *apperrors.AppError {
	var env envelopeError
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		return apperrors.FromStatus(status, env.Error.Code, qualify(serviceName, env.Error.Message))
	}

	var detail detailError
	if json.Unmarshal(body, &detail) == nil && detail.Detail != "" {
		return apperrors.FromStatus(status, strings.ToUpper(detail.Code), qualify(serviceName, detail.Detail))
	}

	if fields := parseFieldErrors(body); len(fields) > 0 {
		appErr := apperrors.FromStatus(status, "", qualify(serviceName, summarize(fields)))
		appErr.Fields = fields
		return appErr
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" || strings.HasPrefix(msg, "<") {
		msg = http.StatusText(status)
	}
	return apperrors.FromStatus(status, "", qualify(serviceName, msg))
}

// parseFieldErrors accepts {"field": ["msg", ...]} and {"field": "msg"}.
// The first message per field is kept.
func parseFieldErrors(body []byte) map[string]string {
	var raw map[string]json.RawMessage
	if json.Unmarshal(body, &raw) != nil {
		return nil
	}

	fields := make(map[string]string, len(raw))
	for name, value := range raw {
		var list []string
		if json.Unmarshal(value, &list) == nil {
			if len(list) > 0 {
				fields[name] = list[0]
			}
			continue
		}
		var single string
		if json.Unmarshal(value, &single) == nil && single != "" {
			fields[name] = single
		}
	}
	return fields
}

func summarize(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		if name == "non_field_errors" {
			parts = append(parts, fields[name])
			continue
		}
		parts = append(parts, name+": "+fields[name])
	}
	return strings.Join(parts, "; ")
}

func qualify(serviceName, message string) string {
	if serviceName == "" {
		return message
	}
	return serviceName + ": " + message
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
