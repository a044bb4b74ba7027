// Package fberrors defines the typed errors returned by the Firebase
// bindings. No raw JS exception crosses into Go code: synchronous throws
// become ConstructionError, rejected promises become CallError, shape
// mismatches become DeserializationError and invalid builder input becomes
// ValidationError.
package fberrors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// ConstructionError occurs when the SDK throws synchronously while a handle
// is being created, e.g. doc() with an odd number of path segments.
type ConstructionError struct {
	Op  string
	Err error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("failed to construct %s: %v", e.Op, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// CallError is a rejected SDK promise (or a throw from an async entry point).
type CallError struct {
	Op      string
	Code    string
	Message string
	Kind    Kind

	// Exception is the decoded JS reason. Its Value is only usable on the
	// JS thread.
	Exception *jsrt.Exception
}

func (e *CallError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s failed (%s): %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

func (e *CallError) Unwrap() error {
	if e.Exception == nil {
		return nil
	}
	return e.Exception
}

// DeserializationError occurs when a JS value does not have the shape the
// Go target expects.
type DeserializationError struct {
	// Path is the dotted field path, e.g. "user.metadata.creationTime".
	Path     string
	Expected string
	Got      string
	// Missing is set when a required field was absent.
	Missing bool
	Err     error
}

func (e *DeserializationError) Error() string {
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	switch {
	case e.Missing:
		return fmt.Sprintf("deserialize %s: required field missing", path)
	case e.Err != nil:
		return fmt.Sprintf("deserialize %s: %v", path, e.Err)
	default:
		return fmt.Sprintf("deserialize %s: expected %s, got %s", path, e.Expected, e.Got)
	}
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}

// SerializationError occurs when a Go value cannot be turned into JS.
type SerializationError struct {
	Path string
	Type string
	Err  error
}

func (e *SerializationError) Error() string {
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	if e.Err != nil {
		return fmt.Sprintf("serialize %s (%s): %v", path, e.Type, e.Err)
	}
	return fmt.Sprintf("serialize %s: unsupported type %s", path, e.Type)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// ValidationError occurs when a builder is missing required configuration
// or holds an invalid value.
type ValidationError struct {
	Builder string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s validation failed: %s (field: %s)", e.Builder, e.Message, e.Field)
	}
	return fmt.Sprintf("%s validation failed: %s", e.Builder, e.Message)
}

// AbandonedError is returned when the caller's context ends before the SDK
// promise settles. JS promises cannot be cancelled: the operation keeps
// running and its eventual result is discarded.
type AbandonedError struct {
	Op  string
	Err error
}

func (e *AbandonedError) Error() string {
	return fmt.Sprintf("%s: stopped waiting (operation may still complete): %v", e.Op, e.Err)
}

func (e *AbandonedError) Unwrap() error {
	return e.Err
}

// Abandon reports err as an *AbandonedError when it means the wait was cut
// short: ctx ended or the realm shut down. Other errors yield nil.
func Abandon(ctx context.Context, op string, err error) *AbandonedError {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return &AbandonedError{Op: op, Err: ctxErr}
	}
	if errors.Is(err, jsrt.ErrClosed) {
		return &AbandonedError{Op: op, Err: jsrt.ErrClosed}
	}
	return nil
}

// FromException builds a CallError from a thrown or rejected JS value.
func FromException(op string, exc *jsrt.Exception) *CallError {
	return &CallError{
		Op:        op,
		Code:      exc.Code,
		Message:   exc.Message,
		Kind:      Classify(exc.Code),
		Exception: exc,
	}
}

// Call converts any error raised at the JS boundary into a typed error.
// Errors that are already typed pass through.
func Call(op string, err error) error {
	if err == nil {
		return nil
	}
	if typed(err) {
		return err
	}
	if exc, ok := jsrt.AsException(err); ok {
		return FromException(op, exc)
	}
	return &CallError{Op: op, Message: err.Error(), Kind: KindUnknown}
}

// Construction wraps a synchronous throw raised while building a handle.
func Construction(op string, err error) error {
	if err == nil {
		return nil
	}
	if typed(err) {
		return err
	}
	return &ConstructionError{Op: op, Err: err}
}

func typed(err error) bool {
	var (
		ce *CallError
		co *ConstructionError
		de *DeserializationError
		se *SerializationError
		ve *ValidationError
		ae *AbandonedError
	)
	return errors.As(err, &ce) || errors.As(err, &co) || errors.As(err, &de) ||
		errors.As(err, &se) || errors.As(err, &ve) || errors.As(err, &ae)
}

// KindOf reports the Kind of a CallError in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// CodeOf reports the SDK error code in err's chain.
func CodeOf(err error) string {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func IsNotFound(err error) bool         { return KindOf(err) == KindNotFound }
func IsPermissionDenied(err error) bool { return KindOf(err) == KindPermission }
func IsNetwork(err error) bool          { return KindOf(err) == KindNetwork }
func IsUnauthenticated(err error) bool  { return KindOf(err) == KindUnauthenticated }

// IsAbandoned reports whether err came from a wait that was given up.
func IsAbandoned(err error) bool {
	var ae *AbandonedError
	return errors.As(err, &ae)
}

// trimService removes the "auth/" style service prefix from a code.
func trimService(code string) string {
	if i := strings.IndexByte(code, '/'); i >= 0 {
		return code[i+1:]
	}
	return code
}
