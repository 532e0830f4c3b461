package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/sqlheur/internal/ir"
)

// ScanResult reads rows into a QueryResult and closes them.
//
// Column labels must be unique in a QueryResult, but SQL allows a select
// list to repeat one (select a.id, b.id ...). Repeats are renamed with a
// numeric suffix: id, id_2, id_3.
func ScanResult(rows *sql.Rows) (*ir.QueryResult, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result, err := ir.NewQueryResult(uniqueLabels(columns)...)
	if err != nil {
		return nil, err
	}

	raw := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		values := make([]ir.Value, len(raw))
		for i, v := range raw {
			values[i], err = ir.FromSQL(v)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", columns[i], err)
			}
		}
		if err := result.AddValues(values...); err != nil {
			return nil, err
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

// uniqueLabels renames case-insensitive repeats in columns.
func uniqueLabels(columns []string) []string {
	taken := make(map[string]bool, len(columns))
	for _, c := range columns {
		taken[strings.ToLower(c)] = false
	}

	out := make([]string, len(columns))
	for i, c := range columns {
		key := strings.ToLower(c)
		if !taken[key] {
			taken[key] = true
			out[i] = c
			continue
		}
		for n := 2; ; n++ {
			label := fmt.Sprintf("%s_%d", c, n)
			if _, exists := taken[strings.ToLower(label)]; !exists {
				taken[strings.ToLower(label)] = true
				out[i] = label
				break
			}
		}
	}
	return out
}
