package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
)

func TestHMACVerifier_StableIdentity(t *testing.T) {
	v, err := NewHMACVerifier("test-secret")
	require.NoError(t, err)

	first, err := v.Verify(context.Background(), "customer-token")
	require.NoError(t, err)
	second, err := v.Verify(context.Background(), "customer-token")
	require.NoError(t, err)

	assert.Equal(t, first.CustomerID, second.CustomerID)
	assert.NotEmpty(t, first.CustomerID)
}

func TestHMACVerifier_DistinctTokensDistinctIdentities(t *testing.T) {
	v, err := NewHMACVerifier("test-secret")
	require.NoError(t, err)

	a, err := v.Verify(context.Background(), "token-a")
	require.NoError(t, err)
	b, err := v.Verify(context.Background(), "token-b")
	require.NoError(t, err)

	assert.NotEqual(t, a.CustomerID, b.CustomerID)
}

func TestHMACVerifier_EmptyToken(t *testing.T) {
	v, err := NewHMACVerifier("test-secret")
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "  ")
	require.Error(t, err)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

func TestNewHMACVerifier_RequiresSecret(t *testing.T) {
	_, err := NewHMACVerifier("")
	require.Error(t, err)
	assert.Equal(t, domain.ECONFIG, domain.ErrorCode(err))
}

func TestIdentityContextRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), &Identity{CustomerID: "cust-1"})
	identity, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "cust-1", identity.CustomerID)

	_, ok = IdentityFromContext(context.Background())
	assert.False(t, ok)
}
