package scenario

import (
	"fmt"
)

// ScenarioNotFoundError occurs when a scenario file cannot be read.
type ScenarioNotFoundError struct {
	Path string
	Err  error
}

func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario not found at '%s': %v", e.Path, e.Err)
}

func (e *ScenarioNotFoundError) Unwrap() error {
	return e.Err
}

// ScenarioParseError occurs when a scenario file is not valid YAML.
type ScenarioParseError struct {
	Path string
	Err  error
}

func (e *ScenarioParseError) Error() string {
	return fmt.Sprintf("failed to parse scenario at '%s': %v", e.Path, e.Err)
}

func (e *ScenarioParseError) Unwrap() error {
	return e.Err
}

// ScenarioValidationError occurs when a scenario fails validation.
type ScenarioValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ScenarioValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("scenario validation failed at '%s': %s (field: %s)",
			e.Path, e.Message, e.Field)
	}
	return fmt.Sprintf("scenario validation failed at '%s': %s", e.Path, e.Message)
}

// UnknownOpError occurs when a step names an op missing from the registry.
type UnknownOpError struct {
	Step string
	Op   string
}

func (e *UnknownOpError) Error() string {
	return fmt.Sprintf("step '%s': unknown op '%s'", e.Step, e.Op)
}

// OpAlreadyRegisteredError occurs when registering a duplicate op.
type OpAlreadyRegisteredError struct {
	Op string
}

func (e *OpAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("op '%s' is already registered", e.Op)
}

// ArgsError occurs when step arguments do not fit the op.
type ArgsError struct {
	Op    string
	Field string
	Err   error
}

func (e *ArgsError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid args for '%s': %s: %v", e.Op, e.Field, e.Err)
	}
	return fmt.Sprintf("invalid args for '%s': %v", e.Op, e.Err)
}

func (e *ArgsError) Unwrap() error {
	return e.Err
}

// ScenarioFailedError reports a run with failed steps.
type ScenarioFailedError struct {
	Name   string
	Failed int
	Total  int
}

func (e *ScenarioFailedError) Error() string {
	return fmt.Sprintf("scenario '%s': %d of %d steps failed", e.Name, e.Failed, e.Total)
}
