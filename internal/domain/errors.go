package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Source and credential errors are absorbed by adapters;
// synthesis, persistence and configuration errors end the run.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrMissingCredential = errors.New("missing credential")
	ErrSynthesis         = errors.New("synthesis failed")
	ErrPersistence       = errors.New("persistence failed")
	ErrConfiguration     = errors.New("configuration error")
)

// StageError wraps a fatal error with the state the run was in when it failed.
type StageError struct {
	Stage RunState
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
