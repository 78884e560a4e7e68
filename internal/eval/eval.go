// Package eval holds the HTTP clients for the external scoring services.
// Both pipelines POST to {service_url}/evaluate and share one response
// envelope: {ok, result?, detail|error?}, or a bare result object.
package eval

import (
	"encoding/json"
	"fmt"
)

// Error is a terminal evaluation failure carrying a human-readable cause.
// The worker records it verbatim as the job's error_message.
type Error struct {
	Cause string
}

func (e *Error) Error() string { return e.Cause }

func errorf(format string, args ...any) *Error {
	return &Error{Cause: fmt.Sprintf(format, args...)}
}

type envelope struct {
	OK     *bool           `json:"ok"`
	Result json.RawMessage `json:"result"`
	Detail string          `json:"detail"`
	Err    string          `json:"error"`
}

// decodeResult unwraps a service response body. A declared failure
// (ok:false) surfaces as an Error; a body without the envelope keys is taken
// to be the result itself.
func decodeResult(body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errorf("invalid JSON response: %v", err)
	}
	if env.OK != nil {
		if !*env.OK {
			msg := env.Detail
			if msg == "" {
				msg = env.Err
			}
			if msg == "" {
				msg = "unknown error"
			}
			return nil, errorf("AI service error: %s", msg)
		}
		if len(env.Result) > 0 {
			return env.Result, nil
		}
	}
	return json.RawMessage(body), nil
}

// truncate keeps error payloads readable in stored diagnostics.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
