package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlheur/internal/heuristic"
	"github.com/roach88/sqlheur/internal/ir"
)

func TestObserver_IgnoresNonFilteringStatements(t *testing.T) {
	db := setupTestDB(t, "(1, 10, 'a')")
	acc := NewAccumulator()
	obs := NewObserver(db, acc)
	ctx := context.Background()

	for _, query := range []string{
		"select x from Foo",
		"insert into Foo values (2, 20, 'b')",
		"update Foo set x = 1 where x = 2",
		"select 1",
	} {
		got, err := obs.Observe(ctx, query)
		assert.NoError(t, err, query)
		assert.Nil(t, got, query)
	}
	assert.Equal(t, 0, acc.Len())
}

func TestObserver_DecreasingTillCovered(t *testing.T) {
	db := setupTestDB(t)
	acc := NewAccumulator()
	obs := NewObserver(db, acc)
	ctx := context.Background()

	query := "select x from Foo where x=5"

	got, err := obs.Observe(ctx, query)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, heuristic.EmptyTableDistance, got.Distance)
	assert.Equal(t, ir.OutcomeScored, got.Outcome)

	for _, x := range []int{9, 3, 6, 5} {
		_, err := db.Exec("INSERT INTO Foo(x) VALUES (?)", x)
		require.NoError(t, err)
		_, err = obs.Observe(ctx, query)
		require.NoError(t, err)
	}

	values := acc.Snapshot()
	require.Len(t, values, 5)
	for i := 1; i < len(values); i++ {
		assert.Less(t, values[i], values[i-1], "step %d", i)
	}
	assert.Zero(t, values[4])
}

func TestObserver_HiddenFilterColumnAndLimit(t *testing.T) {
	db := setupTestDB(t, "(1, 10, 'a')", "(2, 42, 'b')")
	acc := NewAccumulator()
	obs := NewObserver(db, acc)

	// y is not projected and the limit would hide the matching row.
	got, err := obs.Observe(context.Background(), "select f.x from Foo f where f.y = ? limit 1", 42)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, ir.OutcomeScored, got.Outcome)
	assert.Zero(t, got.Distance)
	assert.Equal(t, 2, got.Rows)
	assert.Contains(t, got.CandidateSQL, "__f__y")
	assert.NotContains(t, got.CandidateSQL, "limit")
	assert.Equal(t, []any{42}, got.Args)
}

func TestObserver_UnsupportedFilterFallsBack(t *testing.T) {
	db := setupTestDB(t, "(1, 10, 'a')")
	acc := NewAccumulator()
	obs := NewObserver(db, acc)

	got, err := obs.Observe(context.Background(), "select x from Foo where name like 'a%'")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, ir.OutcomeFallback, got.Outcome)
	assert.Equal(t, heuristic.FallbackDistance, got.Distance)
	assert.Contains(t, got.Error, "LIKE")
	assert.Equal(t, []float64{heuristic.FallbackDistance}, acc.Snapshot())
}

func TestObserver_CandidateFailureAppendsNothing(t *testing.T) {
	db := setupTestDB(t)
	acc := NewAccumulator()
	obs := NewObserver(db, acc)

	got, err := obs.Observe(context.Background(), "select x from Missing where x = 1")
	require.Error(t, err)
	assert.True(t, IsCandidateError(err))
	require.NotNil(t, got)
	assert.Equal(t, ir.OutcomeFailed, got.Outcome)
	assert.Equal(t, 0, acc.Len())

	var oe *ObservationError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, ErrCodeCandidateFailed, oe.Code)
	assert.Contains(t, oe.Error(), "Missing")
}

func TestObserver_RecordsAndNotifies(t *testing.T) {
	db := setupTestDB(t, "(1, 10, 'a')")
	s := setupTestStore(t)
	sink := &collectingSink{}
	acc := NewAccumulator()
	obs := NewObserver(db, acc,
		WithRecorder(s),
		WithSink(sink),
		WithClock(NewClockAt(100)),
		WithIDGenerator(NewFixedGenerator("obs-1", "obs-2")),
	)
	ctx := context.Background()

	_, err := obs.Observe(ctx, "select x from Foo where x = 1")
	require.NoError(t, err)
	acc.Reset()
	_, err = obs.Observe(ctx, "select x from Foo where x = 2")
	require.NoError(t, err)

	recorded, err := s.ReadObservations(ctx)
	require.NoError(t, err)
	require.Len(t, recorded, 2)

	assert.Equal(t, "obs-1", recorded[0].ID)
	assert.Equal(t, int64(101), recorded[0].Seq)
	assert.Equal(t, int64(0), recorded[0].Epoch)
	assert.Zero(t, recorded[0].Distance)

	assert.Equal(t, "obs-2", recorded[1].ID)
	assert.Equal(t, int64(102), recorded[1].Seq)
	assert.Equal(t, int64(1), recorded[1].Epoch)
	assert.Greater(t, recorded[1].Distance, 0.0)

	notified := sink.all()
	require.Len(t, notified, 2)
	assert.Equal(t, "obs-2", notified[1].ID)

	epoch1, err := s.ReadEpoch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, epoch1, 1)
	assert.Equal(t, acc.Snapshot(), []float64{epoch1[0].Distance})
}

type failingRecorder struct{}

func (failingRecorder) RecordObservation(context.Context, ir.Observation) error {
	return errors.New("disk full")
}

func TestObserver_RecordFailureStillAppends(t *testing.T) {
	db := setupTestDB(t, "(1, 10, 'a')")
	acc := NewAccumulator()
	obs := NewObserver(db, acc, WithRecorder(failingRecorder{}))

	got, err := obs.Observe(context.Background(), "select x from Foo where x = 1")
	require.Error(t, err)
	assert.True(t, IsRecordError(err))
	assert.False(t, IsCandidateError(err))
	require.NotNil(t, got)
	assert.Equal(t, []float64{0}, acc.Snapshot())
}

func TestObserver_JoinScenario(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	for _, stmt := range []string{
		"CREATE TABLE Parent(id INT PRIMARY KEY, x INT)",
		"CREATE TABLE Child(id INT PRIMARY KEY, parent_id INT REFERENCES Parent(id), y INT)",
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	acc := NewAccumulator()
	obs := NewObserver(db, acc)
	query := "select p.id from Parent p join Child c on c.parent_id = p.id where p.x = 10 and c.y = 20"

	steps := []string{
		"INSERT INTO Parent VALUES (1, 0)",
		"INSERT INTO Child VALUES (1, 1, 0)",
		"UPDATE Parent SET x = 10 WHERE id = 1",
		"UPDATE Child SET y = 20 WHERE id = 1",
	}
	for _, step := range steps {
		_, err := db.Exec(step)
		require.NoError(t, err)
		_, err = obs.Observe(ctx, query)
		require.NoError(t, err)
	}

	values := acc.Snapshot()
	require.Len(t, values, 4)
	assert.Equal(t, heuristic.EmptyTableDistance, values[0], "no joined rows yet")
	assert.Less(t, values[1], values[0])
	assert.Less(t, values[2], values[1])
	assert.Less(t, values[3], values[2])
	assert.Zero(t, values[3])
}
