package jsrt

import (
	"errors"
	"fmt"
)

// ErrNoModule is returned by Realm.Require for unknown specifiers.
var ErrNoModule = errors.New("module not available")

// ErrClosed is returned by Realm.Run once the realm has shut down.
var ErrClosed = errors.New("js runtime closed")

// Exception is a value thrown (or rejected) by JavaScript.
type Exception struct {
	// Value is the thrown value itself.
	Value Value

	Name    string
	Message string
	// Code is the Firebase error code, e.g. "auth/user-not-found".
	Code  string
	Stack string
}

// NewException decodes the conventional Error fields of a thrown value.
// It must run on the JS thread.
func NewException(v Value) *Exception {
	e := &Exception{Value: v}
	if v == nil {
		e.Message = "undefined"
		return e
	}
	if !v.Type().IsObject() {
		e.Message = v.String()
		return e
	}
	e.Name = stringProp(v, "name")
	e.Message = stringProp(v, "message")
	e.Code = stringProp(v, "code")
	e.Stack = stringProp(v, "stack")
	if e.Message == "" && e.Code == "" {
		e.Message = v.String()
	}
	return e
}

func stringProp(v Value, key string) string {
	p := v.Get(key)
	if p.Type() != TypeString {
		return ""
	}
	return p.String()
}

func (e *Exception) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Code != "":
		return e.Code
	case e.Name != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Name, e.Message)
	default:
		return e.Message
	}
}

// AsException unwraps err to an *Exception.
func AsException(err error) (*Exception, bool) {
	var exc *Exception
	ok := errors.As(err, &exc)
	return exc, ok
}
