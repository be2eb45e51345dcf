// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"errors"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// StageError reports a non-recoverable stage failure. It carries the
// failing stage's name and the state at failure time so partial progress
// (sections, literature summary) is never silently discarded.
type StageError struct {
	Stage string
	State *types.DocumentState
	Err   error
}

func (e *StageError) Error() string {
	return "stage " + e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

// EngineError reports a graph defect: an unregistered stage, a missing
// edge, or an exceeded step bound. These indicate programming errors,
// not runtime conditions to recover from.
type EngineError struct {
	Msg string
}

func (e *EngineError) Error() string { return "workflow: " + e.Msg }

// AsStageError unwraps err to a *StageError if one is present.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
