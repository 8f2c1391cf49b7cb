package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// GenericMessage is shown when the API gave no usable explanation.
const GenericMessage = "request failed"

// maxRawMessage bounds how much of an unstructured error body is kept.
const maxRawMessage = 200

// HTTPError represents a non-2xx HTTP response from the API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// Message returns the human-readable part of err for display.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	return err.Error()
}

// apiErrorMessage extracts a display message from an error body. Validation
// errors win, then the error, message and mensaje fields, then the problem
// title, then the raw body.
func apiErrorMessage(body []byte) string {
	var apiErr struct {
		Error   string          `json:"error"`
		Message string          `json:"message"`
		Mensaje string          `json:"mensaje"`
		Title   string          `json:"title"`
		Errors  json.RawMessage `json:"errors"`
	}
	if json.Unmarshal(body, &apiErr) == nil {
		if msg := validationMessages(apiErr.Errors); msg != "" {
			return msg
		}
		for _, s := range []string{apiErr.Error, apiErr.Message, apiErr.Mensaje, apiErr.Title} {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}

	raw := strings.TrimSpace(string(body))
	if raw == "" || strings.HasPrefix(raw, "<") || bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) {
		return GenericMessage
	}
	if utf8.RuneCountInString(raw) > maxRawMessage {
		raw = string([]rune(raw)[:maxRawMessage]) + "…"
	}
	return raw
}

// validationMessages flattens {"Field": ["msg", ...]} or ["msg", ...].
// Fields are visited in sorted order so the message is stable.
func validationMessages(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var msgs []string

	var byField map[string][]string
	if json.Unmarshal(raw, &byField) == nil {
		fields := make([]string, 0, len(byField))
		for f := range byField {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			msgs = appendNonEmpty(msgs, byField[f]...)
		}
		return strings.Join(msgs, "; ")
	}

	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return strings.Join(appendNonEmpty(msgs, list...), "; ")
	}
	return ""
}

func appendNonEmpty(dst []string, src ...string) []string {
	for _, s := range src {
		if s = strings.TrimSpace(s); s != "" {
			dst = append(dst, s)
		}
	}
	return dst
}
