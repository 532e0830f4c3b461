package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlheur/internal/ir"
	"github.com/roach88/sqlheur/internal/sqltext"
)

func build(t *testing.T, sql string, args ...ir.Value) Predicate {
	t.Helper()
	stmt, err := sqltext.Parse(sql)
	require.NoError(t, err)
	pred, err := Build(stmt, NewAliasTable(stmt), args...)
	require.NoError(t, err)
	return pred
}

func col(name string) ColumnRef {
	return ColumnRef{Name: name, Label: name}
}

func lit(v any) Literal {
	return Literal{Value: ir.Of(v)}
}

func cmp(left Operand, op Op, right Operand) Comparison {
	return Comparison{Left: left, Op: op, Right: right}
}

func TestBuild_NoFilter(t *testing.T) {
	assert.Equal(t, True{}, build(t, "select x from Foo"))
}

func TestBuild_SimpleComparison(t *testing.T) {
	assert.Equal(t, cmp(col("x"), OpEq, lit(5)), build(t, "select x from Foo where x=5"))
}

func TestBuild_Operators(t *testing.T) {
	testCases := []struct {
		filter string
		want   Predicate
	}{
		{"x = 1", cmp(col("x"), OpEq, lit(1))},
		{"x == 1", cmp(col("x"), OpEq, lit(1))},
		{"x <> 1", cmp(col("x"), OpNe, lit(1))},
		{"x != 1", cmp(col("x"), OpNe, lit(1))},
		{"x < 1.5", cmp(col("x"), OpLt, lit(1.5))},
		{"x <= -2", cmp(col("x"), OpLe, lit(-2))},
		{"x > 'abc'", cmp(col("x"), OpGt, lit("abc"))},
		{"x >= +3", cmp(col("x"), OpGe, lit(3))},
		{"x = TRUE", cmp(col("x"), OpEq, lit(true))},
		{"x = (5)", cmp(col("x"), OpEq, lit(5))},
		{"5 < x", cmp(col("x"), OpGt, lit(5))},
		{"(5) >= x", cmp(col("x"), OpLe, lit(5))},
		{"x = y", cmp(col("x"), OpEq, col("y"))},
	}

	for _, tc := range testCases {
		t.Run(tc.filter, func(t *testing.T) {
			assert.Equal(t, tc.want, build(t, "select * from Foo where "+tc.filter))
		})
	}
}

func TestBuild_Connectives(t *testing.T) {
	a := cmp(col("a"), OpEq, lit(1))
	b := cmp(col("b"), OpEq, lit(2))
	c := cmp(col("c"), OpEq, lit(3))

	testCases := []struct {
		filter string
		want   Predicate
	}{
		{"a=1 and b=2 and c=3", And{Left: And{Left: a, Right: b}, Right: c}},
		{"a=1 or b=2 or c=3", Or{Left: Or{Left: a, Right: b}, Right: c}},
		{"a=1 or b=2 and c=3", Or{Left: a, Right: And{Left: b, Right: c}}},
		{"(a=1 or b=2) and c=3", And{Left: Or{Left: a, Right: b}, Right: c}},
		{"((a=1))", a},
		{"a=1 and (b=2 or (c=3))", And{Left: a, Right: Or{Left: b, Right: c}}},
	}

	for _, tc := range testCases {
		t.Run(tc.filter, func(t *testing.T) {
			assert.Equal(t, tc.want, build(t, "select * from Foo where "+tc.filter))
		})
	}
}

func TestBuild_Lowering(t *testing.T) {
	x := col("x")

	testCases := []struct {
		filter string
		want   Predicate
	}{
		{"x is null", cmp(x, OpIs, lit(nil))},
		{"x is not null", cmp(x, OpIsNot, lit(nil))},
		{"x = null", cmp(x, OpEq, lit(nil))},
		{"not x = null", cmp(x, OpNe, lit(nil))},
		{"x between 1 and 3", And{Left: cmp(x, OpGe, lit(1)), Right: cmp(x, OpLe, lit(3))}},
		{"x not between 1 and 3", Or{Left: cmp(x, OpLt, lit(1)), Right: cmp(x, OpGt, lit(3))}},
		{"x in (1, 2, 3)", Or{Left: Or{Left: cmp(x, OpEq, lit(1)), Right: cmp(x, OpEq, lit(2))}, Right: cmp(x, OpEq, lit(3))}},
		{"x not in (1, 2)", And{Left: cmp(x, OpNe, lit(1)), Right: cmp(x, OpNe, lit(2))}},
		{"not x < 5", cmp(x, OpGe, lit(5))},
		{"not (x < 5 and x > 1)", Or{Left: cmp(x, OpGe, lit(5)), Right: cmp(x, OpLe, lit(1))}},
		{"not (x = 1 or x is null)", And{Left: cmp(x, OpNe, lit(1)), Right: cmp(x, OpIsNot, lit(nil))}},
		{"not not x = 1", cmp(x, OpEq, lit(1))},
		{"true", True{}},
		{"false", Not{Inner: True{}}},
		{"not false", True{}},
		{"x = 1 and true", And{Left: cmp(x, OpEq, lit(1)), Right: True{}}},
	}

	for _, tc := range testCases {
		t.Run(tc.filter, func(t *testing.T) {
			assert.Equal(t, tc.want, build(t, "select * from Foo where "+tc.filter))
		})
	}
}

func TestBuild_Placeholders(t *testing.T) {
	pred := build(t, "select * from Foo where x = ? and y > ?", ir.Int(4), ir.NewString("a"))
	assert.Equal(t, And{
		Left:  cmp(col("x"), OpEq, lit(4)),
		Right: cmp(col("y"), OpGt, lit("a")),
	}, pred)
}

func TestBuild_PlaceholderOutsideFilterKeepsOrdinals(t *testing.T) {
	pred := build(t, "select ? as k, x from Foo where x = ?", ir.Int(1), ir.Int(2))
	assert.Equal(t, cmp(col("x"), OpEq, lit(2)), pred)
}

func TestBuild_ResolvesProjectionAliases(t *testing.T) {
	pred := build(t, "select t.a as x, t.b as y from Foo t where x=5 and y=8")
	assert.Equal(t, And{
		Left:  cmp(ColumnRef{Name: "x", Label: "x"}, OpEq, lit(5)),
		Right: cmp(ColumnRef{Name: "y", Label: "y"}, OpEq, lit(8)),
	}, pred)
}

func TestBuild_ResolvesAliasCaseInsensitively(t *testing.T) {
	pred := build(t, "select t.bar as X from Foo t where x='abc123'")
	assert.Equal(t, cmp(ColumnRef{Name: "x", Label: "X"}, OpEq, lit("abc123")), pred)
}

func TestBuild_NestedSelect(t *testing.T) {
	pred := build(t, "select t.a, t.b from (select x as a, 1 as b from Foo where x<10) t where a>3")
	assert.Equal(t, cmp(ColumnRef{Name: "a", Label: "a"}, OpGt, lit(3)), pred)
}

func TestBuild_JoinWidensHiddenColumns(t *testing.T) {
	pred := build(t, "select f.id, f.value, f.bar_id from Foo f inner join Bar b on f.bar_id=b.id where f.value=10 and b.value=20 limit 1")
	assert.Equal(t, And{
		Left:  cmp(ColumnRef{Qualifier: "f", Name: "value", Label: "value"}, OpEq, lit(10)),
		Right: cmp(ColumnRef{Qualifier: "b", Name: "value", Label: "__b__value"}, OpEq, lit(20)),
	}, pred)
}

func TestBuild_Unsupported(t *testing.T) {
	testCases := []struct {
		filter    string
		construct string
	}{
		{"name like 'a%'", "LIKE"},
		{"name not like 'a%'", "LIKE"},
		{"lower(name) = 'a'", "function call lower"},
		{"x in (select y from Bar)", "IN sub-query"},
		{"x = (select max(y) from Bar)", "sub-query"},
		{"exists (select 1 from Bar)", "EXISTS sub-query"},
		{"x + 1 > 3", "arithmetic operator +"},
		{"x > y * 2", "arithmetic operator *"},
		{"case when x then 1 end = 1", "CASE expression"},
		{"x = ?", "unbound placeholder #1"},
		{"active", "expected comparison operator, found end of filter"},
		{"x = 1 x = 2", `unexpected identifier "x"`},
		{"x is 5", "expected NULL, found number \"5\""},
	}

	for _, tc := range testCases {
		t.Run(tc.filter, func(t *testing.T) {
			stmt, err := sqltext.Parse("select * from Foo where " + tc.filter)
			require.NoError(t, err)

			_, err = Build(stmt, NewAliasTable(stmt))
			require.Error(t, err)
			assert.True(t, IsUnsupported(err), "expected UnsupportedPredicateError, got %v", err)

			var ue *UnsupportedPredicateError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, tc.construct, ue.Construct)
			assert.Equal(t, tc.filter, ue.Filter)
		})
	}
}

func TestNegate_IsInvolution(t *testing.T) {
	pred := build(t, "select * from Foo where (a < 1 or b >= 2) and not c = 3")
	assert.Equal(t, pred, Negate(Negate(pred)))
}

func TestFormat(t *testing.T) {
	pred := build(t, "select * from Foo f where f.a is null or (b between 1 and 2 and c <> 'x')")
	assert.Equal(t, "(f.a IS NULL OR ((b >= 1 AND b <= 2) AND c <> 'x'))", Format(pred))
	assert.Equal(t, "NOT TRUE", Format(Not{Inner: True{}}))
}
