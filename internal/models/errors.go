package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every layer. Wrap them with fmt.Errorf("%w: ...").
var (
	ErrNotFound          = errors.New("not found")
	ErrUnavailable       = errors.New("unavailable")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrDuplicate         = errors.New("duplicate")
	ErrAuth              = errors.New("authentication failed")
)

// TransitionError reports an edge the parcel state machine does not allow
type TransitionError struct {
	ParcelId string
	From     ParcelStatus
	To       ParcelStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition for parcel %s: %s -> %s", e.ParcelId, e.From, e.To)
}

// Unwrap lets errors.Is match ErrInvalidTransition
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
