package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fanfiq/fanfiq/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// newFileConfig points the database at a temp file so that every connection
// sees the same data.
func newFileConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewForTest()
	cfg.DatabaseFilePath = filepath.Join(t.TempDir(), "test.db")
	cfg.DatabaseMaxRetries = 0
	cfg.DatabaseBusyTimeout = 1_000_000
	return cfg
}

func TestNew_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	cfg := config.NewForTest()
	cfg.DatabaseDriver = "oracle"
	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestNew_InMemory(t *testing.T) {
	t.Parallel()

	db, err := New(config.NewForTest())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO kv (k, v) VALUES ('a', 'b')`)
	require.NoError(t, err)

	// Every statement must land on the same in-memory database.
	var v string
	err = db.QueryRow(`SELECT v FROM kv WHERE k = 'a'`).Scan(&v)
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

// TestConcurrentTransactions runs many short write transactions in parallel,
// the shape of concurrent ingestion, and expects none of them to fail with a
// lock error.
func TestConcurrentTransactions(t *testing.T) {
	t.Parallel()

	db, err := New(newFileConfig(t))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE concurrency_test (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		value TEXT NOT NULL,
		worker_id INTEGER NOT NULL
	)`)
	require.NoError(t, err)

	const numWorkers = 16
	const txPerWorker = 20

	var wg sync.WaitGroup
	var failures atomic.Int32
	errs := make(chan error, numWorkers*txPerWorker)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := 0; i < txPerWorker; i++ {
				err := db.RunInTx(context.Background(), &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
					_, err := tx.ExecContext(ctx, "DELETE FROM concurrency_test WHERE value = ?", fmt.Sprintf("w%d-%d", workerID, i))
					if err != nil {
						return err
					}
					_, err = tx.ExecContext(ctx,
						"INSERT INTO concurrency_test (value, worker_id) VALUES (?, ?)",
						fmt.Sprintf("w%d-%d", workerID, i), workerID)
					return err
				})
				if err != nil {
					failures.Add(1)
					errs <- err
				}
			}
		}(w)
	}

	wg.Wait()
	close(errs)

	var all []error
	for err := range errs {
		all = append(all, err)
	}
	assert.Empty(t, all)
	assert.Equal(t, int32(0), failures.Load())

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM concurrency_test").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, numWorkers*txPerWorker, count)
}
