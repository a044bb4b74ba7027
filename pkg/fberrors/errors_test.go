package fberrors

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

func TestClassify(t *testing.T) {
	want := map[Kind][]string{
		KindNetwork: {
			"unavailable", "deadline-exceeded",
			"auth/network-request-failed", "auth/timeout",
			"storage/retry-limit-exceeded",
		},
		KindPermission: {
			"permission-denied",
			"auth/unauthorized-domain", "auth/operation-not-allowed", "auth/app-not-authorized", "auth/user-disabled",
			"storage/unauthorized",
		},
		KindNotFound: {
			"not-found",
			"auth/user-not-found",
			"storage/object-not-found", "storage/bucket-not-found", "storage/project-not-found",
		},
		KindAlreadyExists: {
			"already-exists",
			"auth/email-already-in-use", "auth/credential-already-in-use",
		},
		KindInvalidArgument: {
			"invalid-argument", "out-of-range",
			"auth/invalid-email", "auth/argument-error", "auth/weak-password", "auth/invalid-api-key",
			"auth/invalid-continue-uri", "auth/missing-continue-uri", "auth/invalid-tenant-id",
			"storage/invalid-argument", "storage/invalid-url", "storage/invalid-default-bucket",
		},
		KindUnauthenticated: {
			"unauthenticated",
			"auth/wrong-password", "auth/invalid-credential", "auth/invalid-user-token",
			"auth/user-token-expired", "auth/requires-recent-login",
			"storage/unauthenticated",
		},
		KindResourceExhausted: {
			"resource-exhausted",
			"auth/too-many-requests", "auth/quota-exceeded",
			"storage/quota-exceeded",
		},
		KindCancelled: {
			"cancelled",
			"storage/canceled",
		},
		KindFailedPrecondition: {
			"aborted", "failed-precondition",
			"auth/expired-action-code", "auth/invalid-action-code", "auth/app-deleted", "auth/web-storage-unsupported",
			"storage/no-default-bucket", "storage/cannot-slice-blob", "storage/server-file-wrong-size", "storage/invalid-checksum",
		},
	}

	seen := 0
	for kind, codes := range want {
		for _, code := range codes {
			seen++
			if got := Classify(code); got != kind {
				t.Errorf("Classify(%q) = %v, want %v", code, got, kind)
			}
		}
	}
	if seen != len(codeKinds) {
		t.Errorf("Expected %d codes in the table, tested %d", len(codeKinds), seen)
	}
}

func TestClassifyFallback(t *testing.T) {
	tests := []struct {
		code string
		want Kind
	}{
		{"", KindUnknown},
		{"functions/not-found", KindNotFound},
		{"database/permission-denied", KindPermission},
		{"auth/internal-error", KindUnknown},
		{"something-new", KindUnknown},
		{"a/b/c", KindUnknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.code); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindUnknown:            "unknown",
		KindNetwork:            "network",
		KindPermission:         "permission",
		KindNotFound:           "not-found",
		KindAlreadyExists:      "already-exists",
		KindInvalidArgument:    "invalid-argument",
		KindUnauthenticated:    "unauthenticated",
		KindResourceExhausted:  "resource-exhausted",
		KindCancelled:          "cancelled",
		KindFailedPrecondition: "failed-precondition",
		Kind(99):               "unknown",
	}
	for kind, want := range tests {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(kind), got, want)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"construction", &ConstructionError{Op: "firestore.doc", Err: cause}, "failed to construct firestore.doc: boom"},
		{"call with code", &CallError{Op: "auth.signIn", Code: "auth/wrong-password", Message: "bad"}, "auth.signIn failed (auth/wrong-password): bad"},
		{"call without code", &CallError{Op: "auth.signIn", Message: "bad"}, "auth.signIn failed: bad"},
		{"deserialize mismatch", &DeserializationError{Path: "user.uid", Expected: "string", Got: "number"}, "deserialize user.uid: expected string, got number"},
		{"deserialize root", &DeserializationError{Expected: "object", Got: "null"}, "deserialize <root>: expected object, got null"},
		{"deserialize missing", &DeserializationError{Path: "name", Missing: true}, "deserialize name: required field missing"},
		{"deserialize wrapped", &DeserializationError{Path: "at", Err: cause}, "deserialize at: boom"},
		{"serialize unsupported", &SerializationError{Path: "ch", Type: "chan int"}, "serialize ch: unsupported type chan int"},
		{"serialize wrapped", &SerializationError{Type: "time.Time", Err: cause}, "serialize <root> (time.Time): boom"},
		{"validation with field", &ValidationError{Builder: "firebase.OptionsBuilder", Field: "apiKey", Message: "required"}, "firebase.OptionsBuilder validation failed: required (field: apiKey)"},
		{"validation without field", &ValidationError{Builder: "firestore.Query", Message: "no collection"}, "firestore.Query validation failed: no collection"},
		{"abandoned", &AbandonedError{Op: "storage.list", Err: context.Canceled}, "storage.list: stopped waiting (operation may still complete): context canceled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	exc := &jsrt.Exception{Code: "not-found", Message: "gone"}

	tests := []struct {
		name string
		err  error
		as   func(error) bool
		is   error
	}{
		{"construction", &ConstructionError{Op: "op", Err: cause}, func(err error) bool {
			var e *ConstructionError
			return errors.As(err, &e)
		}, cause},
		{"call", &CallError{Op: "op", Exception: exc}, func(err error) bool {
			var e *CallError
			return errors.As(err, &e)
		}, exc},
		{"deserialization", &DeserializationError{Err: cause}, func(err error) bool {
			var e *DeserializationError
			return errors.As(err, &e)
		}, cause},
		{"serialization", &SerializationError{Err: cause}, func(err error) bool {
			var e *SerializationError
			return errors.As(err, &e)
		}, cause},
		{"abandoned", &AbandonedError{Op: "op", Err: context.DeadlineExceeded}, func(err error) bool {
			var e *AbandonedError
			return errors.As(err, &e)
		}, context.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := errors.Join(errors.New("outer"), tt.err)
			if !tt.as(wrapped) {
				t.Errorf("errors.As failed for %T", tt.err)
			}
			if !errors.Is(wrapped, tt.is) {
				t.Errorf("errors.Is(%v) failed for %T", tt.is, tt.err)
			}
		})
	}

	var ve *ValidationError
	if !errors.As(errors.Join(&ValidationError{Builder: "b", Message: "m"}), &ve) {
		t.Error("errors.As failed for *ValidationError")
	}
	if (&CallError{Op: "op"}).Unwrap() != nil {
		t.Error("Expected CallError without exception to unwrap to nil")
	}
}

func TestFromException(t *testing.T) {
	exc := &jsrt.Exception{Name: "FirebaseError", Code: "auth/user-not-found", Message: "no user"}
	ce := FromException("auth.signIn", exc)

	if ce.Op != "auth.signIn" || ce.Code != "auth/user-not-found" || ce.Message != "no user" {
		t.Errorf("Unexpected CallError: %+v", ce)
	}
	if ce.Kind != KindNotFound {
		t.Errorf("Expected kind not-found, got %v", ce.Kind)
	}
	if ce.Exception != exc {
		t.Error("Expected exception to be kept")
	}
}

func TestCallAndConstruction(t *testing.T) {
	if Call("op", nil) != nil || Construction("op", nil) != nil {
		t.Fatal("Expected nil errors to stay nil")
	}

	ve := &ValidationError{Builder: "b", Message: "m"}
	if got := Call("op", ve); got != ve {
		t.Errorf("Expected typed error to pass through Call, got %v", got)
	}
	if got := Construction("op", ve); got != ve {
		t.Errorf("Expected typed error to pass through Construction, got %v", got)
	}

	err := Call("storage.getBytes", &jsrt.Exception{Code: "storage/object-not-found", Message: "missing"})
	if !IsNotFound(err) {
		t.Errorf("Expected not-found from exception, got %v", err)
	}
	if CodeOf(err) != "storage/object-not-found" {
		t.Errorf("Expected code storage/object-not-found, got %q", CodeOf(err))
	}

	err = Call("op", errors.New("plain"))
	var ce *CallError
	if !errors.As(err, &ce) || ce.Message != "plain" || ce.Kind != KindUnknown {
		t.Errorf("Expected unknown CallError wrapping plain error, got %#v", err)
	}

	err = Construction("firestore.doc", errors.New("odd path"))
	var co *ConstructionError
	if !errors.As(err, &co) || co.Op != "firestore.doc" {
		t.Errorf("Expected ConstructionError, got %v", err)
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		code string
		pred func(error) bool
	}{
		{"not-found", IsNotFound},
		{"permission-denied", IsPermissionDenied},
		{"unavailable", IsNetwork},
		{"auth/wrong-password", IsUnauthenticated},
	}
	for _, tt := range tests {
		err := &CallError{Op: "op", Code: tt.code, Kind: Classify(tt.code)}
		if !tt.pred(err) {
			t.Errorf("Expected predicate to match %q", tt.code)
		}
		if tt.pred(errors.New(tt.code)) {
			t.Errorf("Expected predicate to reject untyped %q", tt.code)
		}
	}
	if KindOf(errors.New("x")) != KindUnknown || CodeOf(errors.New("x")) != "" {
		t.Error("Expected unknown kind and empty code for untyped errors")
	}
	if !IsAbandoned(&AbandonedError{Op: "op"}) || IsAbandoned(errors.New("x")) {
		t.Error("IsAbandoned mismatch")
	}
}

func TestAbandon(t *testing.T) {
	live := context.Background()
	ended, cancel := context.WithCancel(context.Background())
	cancel()

	if Abandon(live, "op", nil) != nil {
		t.Error("Expected nil for nil error")
	}
	if Abandon(live, "op", errors.New("x")) != nil {
		t.Error("Expected nil for unrelated error")
	}
	if ae := Abandon(ended, "op", context.Canceled); ae == nil || !errors.Is(ae, context.Canceled) {
		t.Errorf("Expected AbandonedError wrapping Canceled, got %v", ae)
	}
	if Abandon(live, "op", context.Canceled) != nil {
		t.Error("Expected nil when ctx has not ended")
	}
	if ae := Abandon(live, "op", jsrt.ErrClosed); ae == nil || !errors.Is(ae, jsrt.ErrClosed) {
		t.Errorf("Expected AbandonedError wrapping ErrClosed, got %v", ae)
	}
}
