package engine

import "fmt"

// DefaultMaxSteps bounds the number of tasks a single Drain executes.
// A module whose reducer re-triggers itself forever hits this limit instead
// of hanging the caller.
const DefaultMaxSteps = 100000

// StepsExceededError is returned by Drain when the step budget runs out
// while tasks are still queued.
type StepsExceededError struct {
	Steps int
	Limit int
}

func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("drain exceeded max steps (%d >= %d)", e.Steps, e.Limit)
}
