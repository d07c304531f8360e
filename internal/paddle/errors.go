package paddle

import (
	"errors"
	"fmt"
)

var (
	ErrTimeoutExhausted  = errors.New("request timed out")
	ErrRequestFailed     = errors.New("request failed")
	ErrMalformedResponse = errors.New("malformed response")
)

// ServiceError is an error reported by the service inside a successful HTTP
// response. It is not retried.
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("API error %s: %s", e.Code, e.Message)
}

// StatusError is a non-2xx HTTP response. It is treated as a transport
// failure and retried.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("service returned status %d: %s", e.StatusCode, e.Body)
}
