package pipeline

import (
	"errors"
	"fmt"

	"dealflow/internal/domain"
)

var (
	// ErrPriceLocked is returned when a second approval tries to change a
	// fixed price.
	ErrPriceLocked = errors.New("fixed price locked by approved spec")
	// ErrNotPaid is returned by Deliver when payment is not confirmed.
	ErrNotPaid = errors.New("payment not confirmed")
	// ErrRejected is returned by stage calls on a rejected project.
	ErrRejected = errors.New("project is rejected")
)

// InvalidTransitionError reports a stage call whose guard is not met. The
// project is left unchanged.
type InvalidTransitionError struct {
	From domain.Stage
	To   domain.Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid stage transition %s -> %s", e.From, e.To)
}

// CollaboratorError wraps a failed collaborator call. The stage that needed
// the collaborator stays put.
type CollaboratorError struct {
	Name string
	Err  error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator %s: %v", e.Name, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
