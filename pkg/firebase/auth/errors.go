package auth

import (
	"errors"

	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
)

// ErrorKind names the auth/* codes callers usually branch on.
type ErrorKind int

const (
	Other ErrorKind = iota
	AppDeleted
	AppNotAuthorized
	ArgumentError
	InvalidAPIKey
	InvalidUserToken
	InvalidTenantID
	NetworkRequestFailed
	OperationNotAllowed
	RequiresRecentLogin
	TooManyRequests
	UnauthorizedDomain
	UserDisabled
	UserTokenExpired
	WebStorageUnsupported
	InvalidEmail
	UserNotFound
	WrongPassword
	EmailAlreadyInUse
	WeakPassword
	MissingAndroidPackageName
	MissingContinueURI
	MissingIOSBundleID
	InvalidContinueURI
	UnauthorizedContinueURI
	ExpiredActionCode
)

var errorKinds = map[string]ErrorKind{
	"auth/app-deleted":               AppDeleted,
	"auth/app-not-authorized":        AppNotAuthorized,
	"auth/argument-error":            ArgumentError,
	"auth/invalid-api-key":           InvalidAPIKey,
	"auth/invalid-user-token":        InvalidUserToken,
	"auth/invalid-tenant-id":         InvalidTenantID,
	"auth/network-request-failed":    NetworkRequestFailed,
	"auth/operation-not-allowed":     OperationNotAllowed,
	"auth/requires-recent-login":     RequiresRecentLogin,
	"auth/too-many-requests":         TooManyRequests,
	"auth/unauthorized-domain":       UnauthorizedDomain,
	"auth/user-disabled":             UserDisabled,
	"auth/user-token-expired":        UserTokenExpired,
	"auth/web-storage-unsupported":   WebStorageUnsupported,
	"auth/invalid-email":             InvalidEmail,
	"auth/user-not-found":            UserNotFound,
	"auth/wrong-password":            WrongPassword,
	"auth/email-already-in-use":      EmailAlreadyInUse,
	"auth/weak-password":             WeakPassword,
	"auth/missing-android-pkg-name":  MissingAndroidPackageName,
	"auth/missing-continue-uri":      MissingContinueURI,
	"auth/missing-ios-bundle-id":     MissingIOSBundleID,
	"auth/invalid-continue-uri":      InvalidContinueURI,
	"auth/unauthorized-continue-uri": UnauthorizedContinueURI,
	"auth/expired-action-code":       ExpiredActionCode,
}

// KindOf maps an auth/* code to its ErrorKind. Unknown codes are Other.
func KindOf(code string) ErrorKind {
	if k, ok := errorKinds[code]; ok {
		return k
	}
	return Other
}

func (k ErrorKind) String() string {
	for code, kind := range errorKinds {
		if kind == k {
			return code
		}
	}
	return "other"
}

// AuthError is a rejected auth call.
type AuthError struct {
	Kind ErrorKind
	*fberrors.CallError
}

func (e *AuthError) Unwrap() error {
	return e.CallError
}

// wrapError turns CallErrors into AuthErrors. Other errors pass through.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return err
	}
	var ce *fberrors.CallError
	if !errors.As(err, &ce) {
		return err
	}
	return &AuthError{Kind: KindOf(ce.Code), CallError: ce}
}

// IsKind reports whether err is an AuthError of kind k.
func IsKind(err error, k ErrorKind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == k
}
