package pipeline

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step a failure happened in.
type Stage string

const (
	StagePrice     Stage = "price"
	StagePosts     Stage = "posts"
	StageSentiment Stage = "sentiment"
	StageAggregate Stage = "aggregate"
	StageReport    Stage = "report"
)

// StageError carries the failing stage. Its message is "<stage>: <cause>".
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage recorded in err, if any.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
