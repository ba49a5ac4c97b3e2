package imeicheck

import "fmt"

// TransportError reports a non-2xx response from the verification service.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("imei check: unexpected status %d: %s", e.StatusCode, e.Body)
}

// ServiceRejectedError reports a structurally valid response whose status
// field was anything other than "successful".
type ServiceRejectedError struct {
	Status string
}

func (e *ServiceRejectedError) Error() string {
	return fmt.Sprintf("imei check: service rejected request with status %q", e.Status)
}

// NetworkError reports a failure before any HTTP response was received
// (timeout, connection reset, DNS failure).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("imei check: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
