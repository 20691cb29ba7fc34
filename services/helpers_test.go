package services

import (
	"groovon/repositories"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newLocalStore(t *testing.T) *repositories.LocalStore {
	return repositories.NewLocalStore(openDB(t))
}

// queue holds posted tasks until flush, like a busy event loop.
type queue struct {
	mu    sync.Mutex
	tasks []func()
}

func (q *queue) Post(task func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return true
}

func (q *queue) flush() {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()
	for _, task := range tasks {
		task()
	}
}
