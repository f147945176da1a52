package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBusyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"database is locked", errors.New("database is locked"), true},
		{"table is locked", errors.New("database table is locked"), true},
		{"SQLITE_BUSY", errors.New("SQLITE_BUSY"), true},
		{"SQLITE_LOCKED", errors.New("SQLITE_LOCKED"), true},
		{"error code 5", errors.New("error (5): database busy"), true},
		{"connection refused", errors.New("connection refused"), false},
		{"unique violation", errors.New("UNIQUE constraint failed: works.site_id, works.site_work_id"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isBusyError(tt.err))
		})
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	t.Parallel()

	p := newRetryPolicy(10)
	assert.GreaterOrEqual(t, p.delay(0), 50*time.Millisecond)
	assert.LessOrEqual(t, p.delay(0), 63*time.Millisecond)
	assert.GreaterOrEqual(t, p.delay(2), 200*time.Millisecond)
	assert.Equal(t, 2*time.Second, p.delay(8))
}

func TestRetryPolicyDo(t *testing.T) {
	t.Parallel()

	fast := retryPolicy{maxRetries: 5, baseDelay: time.Millisecond, maxDelay: 5 * time.Millisecond}

	t.Run("succeeds on first attempt", func(t *testing.T) {
		attempts := 0
		err := fast.do(context.Background(), func() error {
			attempts++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("retries busy errors until success", func(t *testing.T) {
		attempts := 0
		err := fast.do(context.Background(), func() error {
			attempts++
			if attempts < 3 {
				return errors.New("database is locked")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		attempts := 0
		err := fast.do(context.Background(), func() error {
			attempts++
			return errors.New("connection refused")
		})
		require.EqualError(t, err, "connection refused")
		assert.Equal(t, 1, attempts)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		p := fast
		p.maxRetries = 3
		attempts := 0
		err := p.do(context.Background(), func() error {
			attempts++
			return errors.New("database is locked")
		})
		require.Error(t, err)
		assert.Equal(t, 4, attempts)
	})

	t.Run("zero retries means one attempt", func(t *testing.T) {
		p := fast
		p.maxRetries = 0
		attempts := 0
		err := p.do(context.Background(), func() error {
			attempts++
			return errors.New("database is locked")
		})
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		p := retryPolicy{maxRetries: 100, baseDelay: 20 * time.Millisecond, maxDelay: 20 * time.Millisecond}
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		attempts := 0
		err := p.do(ctx, func() error {
			attempts++
			return errors.New("database is locked")
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Less(t, attempts, 100)
	})
}

type openOnlyDriver struct {
	opened []string
}

func (d *openOnlyDriver) Open(name string) (driver.Conn, error) {
	d.opened = append(d.opened, name)
	return nil, errors.New("not a real database")
}

func TestSQLiteConnector_FallsBackToOpen(t *testing.T) {
	drv := &openOnlyDriver{}

	connector, err := sqliteConnector(drv, "file:catalog.db")
	require.NoError(t, err)
	assert.Same(t, drv, connector.Driver())

	_, err = newRetryConnector(connector, newRetryPolicy(0)).Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"file:catalog.db"}, drv.opened)
}
