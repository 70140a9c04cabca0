package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataset is returned when the collection dataset is missing or structurally unreadable
	ErrDataset = errors.New("dataset error")

	// ErrOwnerEvaluation is returned when a single owner's data cannot be evaluated
	ErrOwnerEvaluation = errors.New("owner evaluation error")

	// ErrPersistence is returned when the claims store cannot be read or written
	ErrPersistence = errors.New("persistence error")

	// ErrInvalidCondition is returned when a condition is internally inconsistent
	ErrInvalidCondition = errors.New("invalid condition")
)

// Stage identifies the step of a run that failed
type Stage string

const (
	StageLoad     Stage = "load"
	StageEvaluate Stage = "evaluate"
	StagePersist  Stage = "persist"
)

// StageError ties a run failure to the contract and stage it happened in
type StageError struct {
	Contract string
	Stage    Stage
	Err      error
}

func (e *StageError) Error() string {
	if e.Contract == "" {
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s failed for contract %s: %v", e.Stage, e.Contract, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a StageError
func NewStageError(contract string, stage Stage, err error) *StageError {
	return &StageError{Contract: contract, Stage: stage, Err: err}
}
