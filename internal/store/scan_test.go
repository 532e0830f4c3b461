package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlheur/internal/ir"
)

func TestScanResult(t *testing.T) {
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range []string{
		"CREATE TABLE Foo(x INT, y REAL, name TEXT)",
		"INSERT INTO Foo VALUES (1, 1.5, 'a'), (2, NULL, NULL)",
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	rows, err := db.QueryContext(context.Background(), "SELECT x, y, name FROM Foo ORDER BY x")
	require.NoError(t, err)

	result, err := ScanResult(rows)
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "y", "name"}, result.Columns())
	require.Equal(t, 2, result.Size())

	first := result.Rows()[0]
	assert.Equal(t, ir.Int(1), first.Value(0))
	assert.Equal(t, ir.Float(1.5), first.Value(1))
	assert.Equal(t, ir.String("a"), first.Value(2))

	second := result.Rows()[1]
	assert.True(t, ir.IsNull(second.Value(1)))
	assert.True(t, ir.IsNull(second.Value(2)))
}

func TestScanResult_Empty(t *testing.T) {
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("CREATE TABLE Foo(x INT)")
	require.NoError(t, err)

	rows, err := db.Query("SELECT x FROM Foo")
	require.NoError(t, err)

	result, err := ScanResult(rows)
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
	assert.Equal(t, []string{"x"}, result.Columns())
}

func TestScanResult_RenamesRepeatedLabels(t *testing.T) {
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rows, err := db.Query("SELECT 1 AS id, 2 AS ID, 3 AS id_2")
	require.NoError(t, err)

	result, err := ScanResult(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "ID_3", "id_2"}, result.Columns())

	v, ok := result.Rows()[0].Get("id_3")
	require.True(t, ok)
	assert.Equal(t, ir.Int(2), v)
}

func TestUniqueLabels(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, uniqueLabels([]string{"a", "b"}))
	assert.Equal(t, []string{"a", "a_2", "a_3"}, uniqueLabels([]string{"a", "a", "a"}))
	assert.Empty(t, uniqueLabels(nil))
}
