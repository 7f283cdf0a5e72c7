package api

import "fmt"

// Error represents an error reported by Trade Republic for a subscription,
// or a transport failure on the underlying connection. Receivers must treat
// it as fatal to the current operation and terminate their receive loop.
type Error struct {
	SubscriptionID int
	Message        string
	Cause          error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("api error (subscription %d): %s: %v", e.SubscriptionID, e.Message, e.Cause)
	}
	return fmt.Sprintf("api error (subscription %d): %s", e.SubscriptionID, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
