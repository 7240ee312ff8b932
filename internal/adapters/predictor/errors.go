package predictor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds for prediction calls.
var (
	// ErrServiceError matches any *ServiceError.
	ErrServiceError = errors.New("prediction service returned an error")
	// ErrUnavailable covers connection failures, timeouts and cancellation.
	ErrUnavailable = errors.New("prediction service unavailable")
	// ErrInvalidResponse is returned when a 200 body cannot be used.
	ErrInvalidResponse = errors.New("prediction service returned an invalid response")
	// ErrInvalidEndpoint is returned by New for unusable endpoints.
	ErrInvalidEndpoint = errors.New("invalid prediction endpoint")
)

// ServiceError is a non-200 answer from the prediction service. Body holds
// the response body as received.
type ServiceError struct {
	StatusCode int
	Body       []byte
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: status %d", ErrServiceError.Error(), e.StatusCode)
}

// Is makes errors.Is(err, ErrServiceError) true for any ServiceError.
func (e *ServiceError) Is(target error) bool {
	return target == ErrServiceError
}

// IsJSON reports whether Body is a JSON document.
func (e *ServiceError) IsJSON() bool {
	return json.Valid(bytes.TrimSpace(e.Body))
}

// PrettyBody returns the body indented when it is JSON, otherwise the raw
// text trimmed of surrounding whitespace.
func (e *ServiceError) PrettyBody() string {
	trimmed := bytes.TrimSpace(e.Body)
	if json.Valid(trimmed) {
		var out bytes.Buffer
		if err := json.Indent(&out, trimmed, "", "  "); err == nil {
			return out.String()
		}
	}
	return strings.TrimSpace(string(e.Body))
}

// RawBody returns the body as JSON when possible so it can be embedded
// verbatim into another JSON document; non-JSON bodies become a JSON string.
func (e *ServiceError) RawBody() json.RawMessage {
	trimmed := bytes.TrimSpace(e.Body)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	s, _ := json.Marshal(string(trimmed))
	return json.RawMessage(s)
}
