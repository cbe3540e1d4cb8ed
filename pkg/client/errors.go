package client

import "fmt"

// AuthError indicates the server rejected the credential. The caller should
// re-authenticate; retrying with the same token will not succeed.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %s", e.Message)
}

// NetworkError indicates a transport failure or a server-side fault. The
// operation may succeed on retry; local state should be left as it was.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError indicates the request was rejected before or by the
// server for malformed input. Retrying without changing the input is
// pointless.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("validation: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("validation: %s", e.Message)
}
