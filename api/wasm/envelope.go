package wasm

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
)

// Response is what every exported function resolves with.
type Response struct {
	Data  any        `js:"data,omitempty"`
	Error *ErrorBody `js:"error,omitempty"`
}

// ErrorBody describes a failed call.
type ErrorBody struct {
	Message string `js:"message"`
	Code    string `js:"code,omitempty"`
	Kind    string `js:"kind"`
}

// ArgumentError reports a bad argument passed from JavaScript.
type ArgumentError struct {
	Func    string
	Index   int
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: argument %d: %s", e.Func, e.Index, e.Message)
}

// PanicError is a recovered panic from a handler.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic recovered: %v\n%s", e.Value, e.Stack)
}

// Success wraps data.
func Success(data any) Response {
	return Response{Data: data}
}

// Failure maps err to an error body.
func Failure(err error) Response {
	body := &ErrorBody{
		Message: err.Error(),
		Code:    fberrors.CodeOf(err),
		Kind:    fberrors.KindOf(err).String(),
	}

	var (
		ae *ArgumentError
		ve *fberrors.ValidationError
		pe *PanicError
	)
	switch {
	case errors.As(err, &ae), errors.As(err, &ve):
		body.Kind = fberrors.KindInvalidArgument.String()
	case errors.As(err, &pe):
		body.Kind = "internal"
	}
	return Response{Error: body}
}

// Guard runs fn and converts its outcome, including a panic, to a Response.
func Guard(fn func() (any, error)) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = Failure(&PanicError{Value: r, Stack: string(debug.Stack())})
		}
	}()

	data, err := fn()
	if err != nil {
		return Failure(err)
	}
	return Success(data)
}
