package registrar

import (
	"errors"
	"fmt"
)

// ErrInvalidTaskID is returned for negative task ids
var ErrInvalidTaskID = errors.New("task id must not be negative")

// ErrInvalidNumTasks is returned for task counts below one
var ErrInvalidNumTasks = errors.New("number of tasks must be at least one")

// Validate checks task identity values. Setters accept anything, callers that
// take identity from users (config, flags) are expected to validate first.
func Validate(id, count int) error {
	if id < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTaskID, id)
	}

	if count < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidNumTasks, count)
	}

	return nil
}
