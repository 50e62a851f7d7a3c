package common

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Empty is the payload of operations that return nothing. It encodes as {}.
type Empty struct{}

// ServiceResponse is the envelope returned by every anchor operation.
// Callers must check Success before reading Payload; a failed response
// carries a Message and the zero value of T.
type ServiceResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Payload T      `json:"payload"`
}

// Success wraps a payload in a successful response.
func Success[T any](payload T) ServiceResponse[T] {
	return ServiceResponse[T]{Success: true, Payload: payload}
}

// Failure builds a failed response with the given message.
func Failure[T any](message string) ServiceResponse[T] {
	return ServiceResponse[T]{Success: false, Message: message}
}

// Failuref builds a failed response with a formatted message.
func Failuref[T any](format string, args ...interface{}) ServiceResponse[T] {
	return Failure[T](fmt.Sprintf(format, args...))
}

// FromResult converts a (value, error) pair into an envelope. On error the
// message is prefix followed by the error text.
func FromResult[T any](payload T, err error, prefix string) ServiceResponse[T] {
	if err != nil {
		return Failure[T](prefix + err.Error())
	}
	return Success(payload)
}

// MarshalJSON omits the payload of failed responses so no stale data is
// ever put on the wire.
func (r ServiceResponse[T]) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}{false, r.Message})
	}
	type plain ServiceResponse[T]
	return json.Marshal(plain(r))
}

// UnmarshalJSON decodes an envelope and drops any payload sent alongside a
// failure.
func (r *ServiceResponse[T]) UnmarshalJSON(data []byte) error {
	type plain ServiceResponse[T]
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	if !decoded.Success {
		var zero T
		decoded.Payload = zero
		if decoded.Message == "" {
			decoded.Message = "request failed"
		}
	}
	*r = ServiceResponse[T](decoded)
	return nil
}

// RespondEnvelope writes an envelope as a JSON response
func RespondEnvelope[T any](w http.ResponseWriter, status int, resp ServiceResponse[T]) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// ExtractRequestID extracts the request ID from the request headers
func ExtractRequestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	if id := r.Header.Get("X-Amzn-Trace-Id"); id != "" {
		return id
	}
	return ""
}
