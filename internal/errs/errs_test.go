package errs_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"wconnect/internal/errs"
)

func TestCodeOfUnwrapsClassifiedErrors(t *testing.T) {
	err := errs.Provider(errs.CodeUserRejected, "User rejected the request")
	assert.Equal(t, errs.CodeUserRejected, errs.CodeOf(err))

	wrapped := fmt.Errorf("connecting: %w", err)
	assert.Equal(t, errs.CodeUserRejected, errs.CodeOf(wrapped))

	assert.Equal(t, 0, errs.CodeOf(errors.New("plain")))
	assert.Equal(t, 0, errs.CodeOf(nil))
}

type rpcError struct{ code int }

func (e rpcError) Error() string  { return "rpc error" }
func (e rpcError) ErrorCode() int { return e.code }

func TestCodeOfReadsRawJSONRPCErrors(t *testing.T) {
	assert.Equal(t, errs.CodeRequestPending, errs.CodeOf(rpcError{code: errs.CodeRequestPending}))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.Kind
	}{
		{"classified", errs.Validation("bad input"), errs.KindValidation},
		{"coded", rpcError{code: 4001}, errs.KindProvider},
		{"deadline", context.DeadlineExceeded, errs.KindTimeout},
		{"plain", errors.New("boom"), errs.KindNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errs.KindOf(tt.err))
		})
	}
}

func TestPredicates(t *testing.T) {
	assert.True(t, errs.IsUserRejected(errs.Provider(4001, "rejected")))
	assert.True(t, errs.IsPending(errs.Provider(-32002, "pending")))
	assert.True(t, errs.IsUnrecognizedChain(errs.Provider(4902, "unknown chain")))
	assert.True(t, errs.IsMethodNotFound(errs.Provider(-32601, "no such method")))

	assert.False(t, errs.IsUserRejected(errs.Provider(4902, "unknown chain")))
	assert.False(t, errs.IsPending(nil))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, errs.IsTimeout(context.DeadlineExceeded))
	assert.True(t, errs.IsTimeout(fmt.Errorf("request: %w", context.DeadlineExceeded)))
	assert.True(t, errs.IsTimeout(errs.Timeout("probe timed out")))
	assert.False(t, errs.IsTimeout(errors.New("boom")))
}

func TestIsAlreadyConnected(t *testing.T) {
	assert.True(t, errs.IsAlreadyConnected(errors.New("connector already connected")))
	assert.True(t, errs.IsAlreadyConnected(errors.New("Already Connected")))
	assert.False(t, errs.IsAlreadyConnected(errors.New("connection refused")))
	assert.False(t, errs.IsAlreadyConnected(nil))
}

func TestErrorStringAndUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := errs.Wrap(errs.KindNetwork, cause, "bridge unreachable")

	assert.Contains(t, err.Error(), "network")
	assert.Contains(t, err.Error(), "bridge unreachable")
	assert.ErrorIs(t, err, cause)
}
