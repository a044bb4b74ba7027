package fberrors

// Kind groups SDK error codes into the categories callers branch on.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindPermission
	KindNotFound
	KindAlreadyExists
	KindInvalidArgument
	KindUnauthenticated
	KindResourceExhausted
	KindCancelled
	KindFailedPrecondition
)

var kindNames = map[Kind]string{
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
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Full codes, checked first. Firestore codes carry no service prefix.
var codeKinds = map[string]Kind{
	// Firestore (gRPC canonical codes)
	"unavailable":         KindNetwork,
	"deadline-exceeded":   KindNetwork,
	"permission-denied":   KindPermission,
	"not-found":           KindNotFound,
	"already-exists":      KindAlreadyExists,
	"invalid-argument":    KindInvalidArgument,
	"out-of-range":        KindInvalidArgument,
	"unauthenticated":     KindUnauthenticated,
	"resource-exhausted":  KindResourceExhausted,
	"cancelled":           KindCancelled,
	"aborted":             KindFailedPrecondition,
	"failed-precondition": KindFailedPrecondition,

	// Auth
	"auth/network-request-failed":    KindNetwork,
	"auth/timeout":                   KindNetwork,
	"auth/unauthorized-domain":       KindPermission,
	"auth/operation-not-allowed":     KindPermission,
	"auth/app-not-authorized":        KindPermission,
	"auth/user-disabled":             KindPermission,
	"auth/user-not-found":            KindNotFound,
	"auth/email-already-in-use":      KindAlreadyExists,
	"auth/credential-already-in-use": KindAlreadyExists,
	"auth/invalid-email":             KindInvalidArgument,
	"auth/argument-error":            KindInvalidArgument,
	"auth/weak-password":             KindInvalidArgument,
	"auth/invalid-api-key":           KindInvalidArgument,
	"auth/invalid-continue-uri":      KindInvalidArgument,
	"auth/missing-continue-uri":      KindInvalidArgument,
	"auth/invalid-tenant-id":         KindInvalidArgument,
	"auth/wrong-password":            KindUnauthenticated,
	"auth/invalid-credential":        KindUnauthenticated,
	"auth/invalid-user-token":        KindUnauthenticated,
	"auth/user-token-expired":        KindUnauthenticated,
	"auth/requires-recent-login":     KindUnauthenticated,
	"auth/expired-action-code":       KindFailedPrecondition,
	"auth/invalid-action-code":       KindFailedPrecondition,
	"auth/too-many-requests":         KindResourceExhausted,
	"auth/quota-exceeded":            KindResourceExhausted,
	"auth/app-deleted":               KindFailedPrecondition,
	"auth/web-storage-unsupported":   KindFailedPrecondition,

	// Storage
	"storage/retry-limit-exceeded":   KindNetwork,
	"storage/unauthorized":           KindPermission,
	"storage/unauthenticated":        KindUnauthenticated,
	"storage/object-not-found":       KindNotFound,
	"storage/bucket-not-found":       KindNotFound,
	"storage/project-not-found":      KindNotFound,
	"storage/quota-exceeded":         KindResourceExhausted,
	"storage/canceled":               KindCancelled,
	"storage/invalid-argument":       KindInvalidArgument,
	"storage/invalid-url":            KindInvalidArgument,
	"storage/invalid-default-bucket": KindInvalidArgument,
	"storage/no-default-bucket":      KindFailedPrecondition,
	"storage/cannot-slice-blob":      KindFailedPrecondition,
	"storage/server-file-wrong-size": KindFailedPrecondition,
	"storage/invalid-checksum":       KindFailedPrecondition,
}

// Classify maps an SDK error code to its Kind. Codes of services not in the
// table fall back to their unprefixed suffix, so "functions/not-found" is
// KindNotFound.
func Classify(code string) Kind {
	if code == "" {
		return KindUnknown
	}
	if k, ok := codeKinds[code]; ok {
		return k
	}
	if k, ok := codeKinds[trimService(code)]; ok {
		return k
	}
	return KindUnknown
}
