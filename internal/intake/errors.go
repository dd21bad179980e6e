package intake

import (
	"errors"
	"fmt"
)

// ErrTurnInFlight is returned when a caller starts a turn while another
// turn, evaluation or refinement is still outstanding against the same
// session. Turns are mutually exclusive, never interleaved or queued.
var ErrTurnInFlight = errors.New("another turn is already in flight for this session")

// IncompleteDraftError is returned by Evaluate when the draft has not yet
// satisfied the expenses section. The caller recovers by continuing
// collection.
type IncompleteDraftError struct {
	Active  Section
	Missing []string
}

func (e *IncompleteDraftError) Error() string {
	return fmt.Sprintf("draft is not ready for decisioning: section %q is missing %v", e.Active, e.Missing)
}

// InvalidFieldValueError rejects a numeric update that is negative or not a
// number. The draft is left untouched.
type InvalidFieldValueError struct {
	Field string
	Value float64
}

func (e *InvalidFieldValueError) Error() string {
	return fmt.Sprintf("invalid value %v for field %q", e.Value, e.Field)
}
