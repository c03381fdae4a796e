package cms

import "fmt"

// AuthError reports a rejected client-credentials exchange.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("cms: credential exchange failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// BackendError reports a non-success response from the commerce backend,
// including transport failures and timeouts (Status is 0 for those).
type BackendError struct {
	Status int
	Body   string
	Err    error
}

func (e *BackendError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("cms: request failed: %v", e.Err)
	}
	return fmt.Sprintf("cms: backend returned %d: %s", e.Status, e.Body)
}

func (e *BackendError) Unwrap() error { return e.Err }

// NotFoundError reports an absent entity, e.g. a product without an image
// or a cart line that no longer exists.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cms: %s %q not found", e.Kind, e.ID)
}

// ValidationError reports malformed local input rejected before any network call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "cms: " + e.Msg
}
