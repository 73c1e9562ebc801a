package library_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/library-service/cmd/api/library"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_RetryWithExponentialBackoff(t *testing.T) {
	t.Run("succeeds on first attempt", func(t *testing.T) {
		attempts := 0
		err := library.RetryWithExponentialBackoff(context.Background(), func(context.Context) error {
			attempts++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("retries a transaction conflict until it succeeds", func(t *testing.T) {
		attempts := 0
		err := library.RetryWithExponentialBackoff(context.Background(), func(context.Context) error {
			attempts++
			if attempts < 3 {
				return fmt.Errorf("locking book: %w", library.ErrTxConflict)
			}
			return nil
		}, library.WithBaseDelay(time.Millisecond))

		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up after max attempts with the last error", func(t *testing.T) {
		attempts := 0
		err := library.RetryWithExponentialBackoff(context.Background(), func(context.Context) error {
			attempts++
			return library.ErrTxConflict
		}, library.WithMaxAttempts(3), library.WithBaseDelay(time.Millisecond))

		require.ErrorIs(t, err, library.ErrTxConflict)
		assert.Equal(t, 3, attempts)
	})

	t.Run("does not retry domain errors", func(t *testing.T) {
		attempts := 0
		err := library.RetryWithExponentialBackoff(context.Background(), func(context.Context) error {
			attempts++
			return library.ErrResponseBookNotAvailable
		})

		require.ErrorIs(t, err, library.ErrResponseBookNotAvailable)
		assert.Equal(t, 1, attempts)
	})

	t.Run("stops waiting when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		err := library.RetryWithExponentialBackoff(ctx, func(context.Context) error {
			attempts++
			cancel()
			return library.ErrTxConflict
		}, library.WithBaseDelay(time.Hour))

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, attempts)
	})

	t.Run("rejects invalid options", func(t *testing.T) {
		noop := func(context.Context) error { return nil }

		assert.ErrorIs(t, library.RetryWithExponentialBackoff(context.Background(), noop, library.WithMaxAttempts(0)), library.ErrInvalidMaxAttempts)
		assert.ErrorIs(t, library.RetryWithExponentialBackoff(context.Background(), noop, library.WithBaseDelay(-time.Second)), library.ErrNegativeBaseDelay)
		assert.ErrorIs(t, library.RetryWithExponentialBackoff(context.Background(), noop, library.WithJitterFactor(1.5)), library.ErrInvalidJitterFactor)
	})
}

func TestErrorKinds(t *testing.T) {
	t.Run("a sentinel still matches after adding a detail", func(t *testing.T) {
		err := fmt.Errorf("storing book on db: %w", library.ErrResponseDuplicateISBN.WithDetail(": 978-3"))

		assert.True(t, errors.Is(err, library.ErrResponseDuplicateISBN))
		assert.False(t, errors.Is(err, library.ErrResponseBookNotFound))

		kind, ok := library.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, library.KindConflict, kind)
		assert.Equal(t, "conflict", kind.String())
	})

	t.Run("infrastructure errors have no kind", func(t *testing.T) {
		_, ok := library.KindOf(fmt.Errorf("querying: %w", library.ErrTxConflict))
		assert.False(t, ok)
	})

	t.Run("a borrowing must end after it starts", func(t *testing.T) {
		now := time.Now()
		b := library.Borrowing{BorrowedAt: now, ReturnDue: now}
		assert.ErrorIs(t, b.Validate(), library.ErrResponseInvalidPeriod)

		b.ReturnDue = now.Add(time.Second)
		assert.NoError(t, b.Validate())
		assert.True(t, b.Overdue(now.Add(time.Minute)))

		b.Returned = true
		assert.False(t, b.Overdue(now.Add(time.Minute)))
	})
}
