package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
	"github.com/prg-04/uptime-decor-lights-sub000/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isTerminal(s domain.PaymentStatus) bool { return s.Terminal() }

func TestPollUntilTerminal_ImmediateTerminal(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context) (domain.PaymentStatus, error) {
		calls++
		return domain.StatusCompleted, nil
	}

	status, err := retry.PollUntilTerminal(context.Background(), fetch, isTerminal, 5, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, status)
	assert.Equal(t, 1, calls, "terminal status must return without retrying")
}

func TestPollUntilTerminal_ExhaustsBudgetOnPending(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context) (domain.PaymentStatus, error) {
		calls++
		return domain.StatusPending, nil
	}

	status, err := retry.PollUntilTerminal(context.Background(), fetch, isTerminal, 3, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, status, "last observed status is returned, not an error")
	assert.Equal(t, 3, calls, "exactly maxAttempts calls")
}

func TestPollUntilTerminal_TerminalOnLaterAttempt(t *testing.T) {
	responses := []domain.PaymentStatus{domain.StatusPending, domain.StatusPending, domain.StatusCompleted}
	calls := 0
	fetch := func(ctx context.Context) (domain.PaymentStatus, error) {
		s := responses[calls]
		calls++
		return s, nil
	}

	status, err := retry.PollUntilTerminal(context.Background(), fetch, isTerminal, 5, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, status)
	assert.Equal(t, 3, calls)
}

func TestPollUntilTerminal_ErrorConsumesAttempt(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context) (domain.PaymentStatus, error) {
		calls++
		if calls == 1 {
			return domain.StatusUnknown, errors.New("connection reset")
		}
		return domain.StatusCompleted, nil
	}

	status, err := retry.PollUntilTerminal(context.Background(), fetch, isTerminal, 3, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, status)
	assert.Equal(t, 2, calls, "a fetch error counts as a consumed attempt, not an abort")
}

func TestPollUntilTerminal_AllErrorsPropagatesLast(t *testing.T) {
	boom := errors.New("gateway timeout")
	calls := 0
	fetch := func(ctx context.Context) (domain.PaymentStatus, error) {
		calls++
		return domain.StatusUnknown, boom
	}

	_, err := retry.PollUntilTerminal(context.Background(), fetch, isTerminal, 3, time.Millisecond)

	assert.ErrorIs(t, err, boom, "error propagates only when no status was ever obtained")
	assert.Equal(t, 3, calls)
}

func TestPollUntilTerminal_StatusThenErrorsReturnsLastStatus(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context) (domain.PaymentStatus, error) {
		calls++
		if calls == 1 {
			return domain.StatusPending, nil
		}
		return domain.StatusUnknown, errors.New("flaky network")
	}

	status, err := retry.PollUntilTerminal(context.Background(), fetch, isTerminal, 3, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, status)
}

func TestPollUntilTerminal_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetch := func(ctx context.Context) (domain.PaymentStatus, error) {
		cancel()
		return domain.StatusPending, nil
	}

	status, err := retry.PollUntilTerminal(ctx, fetch, isTerminal, 5, time.Hour)

	require.NoError(t, err, "an observed status wins over cancellation")
	assert.Equal(t, domain.StatusPending, status)
}
