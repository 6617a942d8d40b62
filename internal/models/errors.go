// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

package models

import (
	"errors"
	"fmt"
)

// InputMissingError reports that a raw input file or directory does not exist.
// Stages degrade to an empty result when they see it.
type InputMissingError struct {
	Path string
}

func (e *InputMissingError) Error() string {
	return fmt.Sprintf("input missing: %s", e.Path)
}

// EmptyInputError reports that an input exists but produced no usable rows.
type EmptyInputError struct {
	Source string
}

func (e *EmptyInputError) Error() string {
	if e.Source == "" {
		return "empty input"
	}
	return fmt.Sprintf("empty input: %s", e.Source)
}

// StageExecutionError wraps an unexpected failure inside a stage.
type StageExecutionError struct {
	Stage string
	Err   error
}

func (e *StageExecutionError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageExecutionError) Unwrap() error {
	return e.Err
}

// StoreUnavailableError reports that the shared store could not be reached.
// It is not recoverable inside a stage and aborts the running phase.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// IsInputMissing reports whether err contains an InputMissingError.
func IsInputMissing(err error) bool {
	var target *InputMissingError
	return errors.As(err, &target)
}

// IsEmptyInput reports whether err contains an EmptyInputError.
func IsEmptyInput(err error) bool {
	var target *EmptyInputError
	return errors.As(err, &target)
}

// IsStoreUnavailable reports whether err contains a StoreUnavailableError.
func IsStoreUnavailable(err error) bool {
	var target *StoreUnavailableError
	return errors.As(err, &target)
}
