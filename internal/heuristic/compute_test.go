package heuristic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlheur/internal/ir"
	"github.com/roach88/sqlheur/internal/queryir"
	"github.com/roach88/sqlheur/internal/sqltext"
	"github.com/roach88/sqlheur/internal/store"
)

func TestComputeDistance_Fallbacks(t *testing.T) {
	res := single("x", ir.Int(5))

	testCases := []struct {
		name string
		sql  string
		res  *ir.QueryResult
		args []any
	}{
		{"like", "select x from Foo where x like 'a%'", res, nil},
		{"function call", "select x from Foo where lower(x) = 'a'", res, nil},
		{"sub-query", "select x from Foo where x in (select y from Bar)", res, nil},
		{"not a select", "update Foo set x = 1", res, nil},
		{"malformed", "select x from", res, nil},
		{"missing column", "select x from Foo where y = 1", res, nil},
		{"unbound placeholder", "select x from Foo where x = ?", res, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, FallbackDistance, ComputeDistance(tc.sql, tc.res, tc.args...))
		})
	}
}

func TestComputeDistance_Scores(t *testing.T) {
	assert.Zero(t, ComputeDistance("select x from Foo where x = ?", single("x", ir.Int(5)), 5))
	assert.Greater(t, ComputeDistance("select x from Foo where x = ?", single("x", ir.Int(5)), 6), 0.0)
}

func TestEvaluate_ErrorKinds(t *testing.T) {
	res := single("x", ir.Int(5))

	_, err := Evaluate("delete from Foo", res)
	require.Error(t, err)
	assert.True(t, sqltext.IsMalformed(err))

	_, err = Evaluate("select x from Foo where x like 'a'", res)
	require.Error(t, err)
	assert.True(t, queryir.IsUnsupported(err))

	_, err = Evaluate("select x from Foo where y = 1", res)
	require.Error(t, err)
	assert.True(t, queryir.IsResolution(err))
}

func TestEvaluate_EmptyResultSkipsResolution(t *testing.T) {
	// With no rows there is nothing to resolve against, so a filter over a
	// column the result lacks still scores the empty-table distance.
	d, err := Evaluate("select x from Foo where y = 1", ir.MustQueryResult("x"))
	require.NoError(t, err)
	assert.Equal(t, EmptyTableDistance, d)

	d, err = Evaluate("select x from Foo where y = 1", nil)
	require.NoError(t, err)
	assert.Equal(t, EmptyTableDistance, d)
}

func TestStringDistance(t *testing.T) {
	target := "abc123"
	testCases := []struct {
		s    string
		want float64
	}{
		{"a", 5 * MaxCharDistance},
		{"ab", 4 * MaxCharDistance},
		{"xxx123x", MaxCharDistance + 23 + 22 + 21},
		{"xxx123", 23 + 22 + 21},
		{"axx123", 22 + 21},
		{"abc234", 3},
		{"abc123", 0},
	}

	prev := StringDistance("", target)
	assert.Equal(t, float64(6*MaxCharDistance), prev)
	for _, tc := range testCases {
		d := StringDistance(tc.s, target)
		assert.Equal(t, tc.want, d, tc.s)
		assert.Less(t, d, prev, tc.s)
		prev = d
	}

	assert.Equal(t, StringDistance("abc", "abd"), StringDistance("abd", "abc"))
	assert.Equal(t, float64(1), StringDistance("\u00e9", "\u00ea"))
}

// TestAgreesWithSQLite checks, on a real database, that a query scores zero
// over its candidate rows exactly when it returns rows itself.
func TestAgreesWithSQLite(t *testing.T) {
	db, err := store.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range []string{
		"CREATE TABLE Foo(x INT, y INT, name TEXT)",
		"INSERT INTO Foo VALUES (1, 10, 'a'), (4, NULL, 'b'), (7, 70, NULL), (20, 200, 'd')",
		"CREATE TABLE Bar(id INT, x INT, label TEXT)",
		"INSERT INTO Bar VALUES (1, 4, 'four'), (2, 20, 'twenty')",
		"CREATE TABLE Code(code TEXT)",
		"INSERT INTO Code VALUES ('7'), ('1'), ('NaN')",
		"CREATE TABLE A(id INT, k INT)",
		"INSERT INTO A VALUES (1, 1)",
		"CREATE TABLE B(id INT, k INT)",
		"INSERT INTO B VALUES (3, 1)",
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	testCases := []struct {
		sql  string
		args []any
	}{
		{"select x from Foo where x = 4", nil},
		{"select x from Foo where x = 5", nil},
		{"select x from Foo where y > 100", nil},
		{"select x from Foo where y > 1000", nil},
		{"select f.x from Foo f where f.name = 'b' and f.y is null", nil},
		{"select f.x from Foo f where f.name = 'a' and f.y is null", nil},
		{"select x from Foo where not (x < 5) or name is null", nil},
		{"select x from Foo where x between 2 and 6 and name <> 'zz'", nil},
		{"select x from Foo where x between 8 and 19", nil},
		{"select x from Foo where x in (3, 9)", nil},
		{"select x from Foo where x not in (1, 4, 7, 20)", nil},
		{"select x from Foo where x = ?", []any{7}},
		{"select x from Foo where x = ?", []any{8}},
		{"select x from Foo where name > 'c'", nil},
		{"select x from Foo where name > 'd'", nil},
		{"select x from Foo where y <> 70", nil},
		{"select x as val from Foo where val >= 20", nil},
		{"select f.x from Foo f join Bar b on f.x = b.x where b.label = 'twenty'", nil},
		{"select f.x from Foo f join Bar b on f.x = b.x where b.label = 'seven'", nil},
		{"select * from Foo where x = 20 limit 1", nil},
		{"select s.x from (select x, y from Foo where y > 0) s where s.x = 7", nil},
		{"select s.x from (select x, y from Foo where y > 0) s where s.x = 4", nil},
		{"select t.a, t.b from (select x as a, 1 as b from Foo where x<10) t where a>3", nil},
		{"select t.a, t.b from (select x as a, 1 as b from Foo where x<10) t where a>7", nil},
		{"select code from Code where code = '007'", nil},
		{"select code from Code where code = '7'", nil},
		{"select code from Code where code = 'NaN'", nil},
		{"select code from Code where code = '1.0'", nil},
		{"select code from Code where code <> '1.0' and code < '2'", nil},
		{"select x from Foo where y = null", nil},
		{"select x from Foo where not (y = null)", nil},
		{"select x from Foo where y <> null or x = 99", nil},
		{"select x from Foo where y = ?", []any{nil}},
		{"select x from Foo where y is not null and x = 4", nil},
		{"select a.id, b.id from A a join B b on a.k = b.k where b.id = 3", nil},
		{"select a.id, b.id from A a join B b on a.k = b.k where a.id = 3", nil},
		{"select a.id, b.id from A a join B b on a.k = b.k where a.id = 1 and b.id = 3", nil},
	}

	ctx := context.Background()
	for _, tc := range testCases {
		t.Run(tc.sql, func(t *testing.T) {
			var count int
			require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ("+tc.sql+")", tc.args...).Scan(&count))

			c, err := queryir.Prepare(tc.sql, tc.args...)
			require.NoError(t, err)

			rows, err := db.QueryContext(ctx, c.SQL, c.Args...)
			require.NoError(t, err, c.SQL)
			res, err := store.ScanResult(rows)
			require.NoError(t, err)

			d, err := EvaluatePredicate(c.Filter, res)
			require.NoError(t, err)

			assert.Equal(t, count > 0, d == 0, "count %d, distance %v, candidate %s", count, d, c.SQL)
		})
	}
}
