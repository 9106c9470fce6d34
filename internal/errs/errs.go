package errs

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure crossing the provider, network or storage boundary.
type Kind string

const (
	KindProvider   Kind = "provider"
	KindNetwork    Kind = "network"
	KindTimeout    Kind = "timeout"
	KindStorage    Kind = "storage"
	KindValidation Kind = "validation"
)

// EIP-1193 / JSON-RPC error codes surfaced by wallet providers.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeChainDisconnected = 4901
	CodeUnrecognizedChain = 4902
	CodeRequestPending    = -32002
	CodeMethodNotFound    = -32601
	CodeInternal          = -32603
)

// Error is a classified failure. Commands never surface raw provider errors;
// they are wrapped here once at the adapter boundary and inspected with the
// predicates below everywhere else.
type Error struct {
	Kind Kind
	Code int // provider/JSON-RPC code, 0 when not applicable
	Msg  string
	Err  error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Provider builds a provider-kind error carrying a wallet error code.
func Provider(code int, msg string) *Error {
	return &Error{Kind: KindProvider, Code: code, Msg: msg}
}

// Wrap classifies an underlying error under the given kind.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Validation builds a validation-kind error (caller contract violation).
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// Timeout builds a timeout-kind error.
func Timeout(msg string) *Error {
	return &Error{Kind: KindTimeout, Msg: msg}
}

// coded is satisfied by go-ethereum's rpc.Error.
type coded interface {
	Error() string
	ErrorCode() int
}

// CodeOf extracts the provider error code from err, unwrapping both *Error
// and raw JSON-RPC errors. Returns 0 when no code is attached.
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	var c coded
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return 0
}

// KindOf returns the classification of err, defaulting to KindProvider for
// coded errors and KindNetwork for everything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var c coded
	if errors.As(err, &c) {
		return KindProvider
	}
	if IsTimeout(err) {
		return KindTimeout
	}
	return KindNetwork
}

// IsTimeout reports whether err is a deadline/timeout failure.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var e *Error
	return errors.As(err, &e) && e.Kind == KindTimeout
}

// IsPending reports the low-severity "request already pending" rejection.
// Wallets return it when a previous approval popup is still open; it must
// not be counted as a retry-worthy failure.
func IsPending(err error) bool {
	return CodeOf(err) == CodeRequestPending
}

// IsUserRejected reports the user dismissing the wallet approval popup.
func IsUserRejected(err error) bool {
	return CodeOf(err) == CodeUserRejected
}

// IsUnrecognizedChain reports the provider not knowing the requested chain.
// This is the only condition where a register-chain fallback is valid.
func IsUnrecognizedChain(err error) bool {
	return CodeOf(err) == CodeUnrecognizedChain
}

// IsMethodNotFound reports an unsupported provider method.
func IsMethodNotFound(err error) bool {
	return CodeOf(err) == CodeMethodNotFound
}

// IsAlreadyConnected reports the provider refusing a connect because a
// session already exists. Treated as a state resync, not a failure.
func IsAlreadyConnected(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "already connected")
}
