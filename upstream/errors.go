package upstream

import "fmt"

// TransportError reports a request that did not come back with the expected
// status, either because the service answered with another code or because
// no answer arrived at all (Err set, StatusCode 0)
type TransportError struct {
	Service    string
	URL        string
	StatusCode int
	Expected   int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: request to %s failed: %v", e.Service, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: status code %d is not %d, URL -> %s", e.Service, e.StatusCode, e.Expected, e.URL)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError reports a 200 response whose body is not the expected JSON
type DecodeError struct {
	Service string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: could not decode response body: %v", e.Service, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
