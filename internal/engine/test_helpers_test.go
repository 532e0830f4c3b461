package engine

import (
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlheur/internal/ir"
	"github.com/roach88/sqlheur/internal/store"
)

// setupTestDB opens an in-memory database holding Foo(x, y, name).
func setupTestDB(t *testing.T, rows ...string) *sql.DB {
	t.Helper()
	db, err := store.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("CREATE TABLE Foo(x INT, y INT, name TEXT)")
	require.NoError(t, err)
	for _, r := range rows {
		_, err := db.Exec("INSERT INTO Foo VALUES " + r)
		require.NoError(t, err)
	}
	return db
}

// setupTestStore opens an in-memory observation store.
func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// collectingSink records every observation it is sent.
type collectingSink struct {
	mu  sync.Mutex
	obs []ir.Observation
}

func (s *collectingSink) Observed(obs ir.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obs = append(s.obs, obs)
}

func (s *collectingSink) all() []ir.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ir.Observation, len(s.obs))
	copy(out, s.obs)
	return out
}
