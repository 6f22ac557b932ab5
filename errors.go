package courselookup

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexSealed is returned when a document is added to an index after
	// it has been sealed.
	ErrIndexSealed = errors.New("courselookup: index is sealed")

	// ErrNoDataset is returned by loaders that have nothing to load.
	ErrNoDataset = errors.New("courselookup: no dataset configured")

	// ErrInvalidCondition matches every ConditionError.
	ErrInvalidCondition = errors.New("courselookup: invalid condition")

	errNoAdapter = errors.New("courselookup: no record adapter registered for value")
)

// ConditionError reports a search condition that could not be parsed.
type ConditionError struct {
	Condition string
	cause     error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("courselookup: invalid condition %q: %v", e.Condition, e.cause)
}

func (e *ConditionError) Unwrap() error { return e.cause }

func (e *ConditionError) Is(target error) bool { return target == ErrInvalidCondition }
