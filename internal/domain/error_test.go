package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, ""},
		{"domain error", Invalid("op", "bad input"), EINVALID},
		{"wrapped domain error", fmt.Errorf("outer: %w", Conflict("op", "dup")), ECONFLICT},
		{"plain error", errors.New("boom"), EINTERNAL},
		{"config error", Config("pesapal.register_ipn", "callback url missing"), ECONFIG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ErrorCode(tt.err))
		})
	}
}

func TestErrorMessage_HidesInternalDetails(t *testing.T) {
	err := Internal(errors.New("pq: connection refused"), "order.insert", "failed to save order")
	msg := ErrorMessage(err)
	assert.NotContains(t, msg, "connection refused")
	assert.NotContains(t, msg, "failed to save order")
}

func TestErrorMessage_ShowsUserFacing(t *testing.T) {
	err := Invalid("checkout.create", "cart is empty")
	assert.Equal(t, "cart is empty", ErrorMessage(err))
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("tcp timeout")
	err := WrapError(inner, EINTERNAL, "pesapal.status", "status query failed")
	assert.True(t, errors.Is(err, inner))
}

func TestError_ErrorString(t *testing.T) {
	err := &Error{Code: EINVALID, Op: "reconcile.confirm", Message: "reference required"}
	assert.Equal(t, "reconcile.confirm: reference required", err.Error())

	wrapped := &Error{Code: EINTERNAL, Message: "status query failed", Err: errors.New("eof")}
	assert.Equal(t, "status query failed: eof", wrapped.Error())
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(ErrOrderNotFound, ENOTFOUND))
	assert.False(t, IsCode(ErrOrderNotFound, ECONFLICT))
}
