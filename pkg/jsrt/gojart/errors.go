package gojart

import (
	"fmt"

	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// ErrClosed is returned by Run after Close.
var ErrClosed = jsrt.ErrClosed

// CompilationError occurs when an SDK module fails to compile.
type CompilationError struct {
	Module string
	Err    error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("failed to compile JS module '%s': %v", e.Module, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// ModuleNotFoundError occurs when Require names a module that was never
// loaded into the runtime.
type ModuleNotFoundError struct {
	Module string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("JS module '%s' not loaded", e.Module)
}

func (e *ModuleNotFoundError) Unwrap() error {
	return jsrt.ErrNoModule
}

// ModuleReadError occurs when a module source cannot be read.
type ModuleReadError struct {
	Module string
	Origin string
	Err    error
}

func (e *ModuleReadError) Error() string {
	return fmt.Sprintf("failed to read JS module '%s' from %s: %v", e.Module, e.Origin, e.Err)
}

func (e *ModuleReadError) Unwrap() error {
	return e.Err
}

// PanicError is a Go panic recovered on the loop.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic on JS loop: %v", e.Value)
}
