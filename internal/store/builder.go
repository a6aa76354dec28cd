package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/JonMunkholm/tenantrestore/internal/core"
	"github.com/jackc/pgx/v5"
)

// maxParams is the Postgres limit on bind parameters per statement.
const maxParams = 65535

// buildInsert generates one multi-row INSERT returning the new ids in row
// order. Columns are the sorted union over all records; a record without a
// column gets DEFAULT for it.
func buildInsert(table string, records []core.Record) (string, []any, error) {
	if len(records) == 0 {
		return "", nil, fmt.Errorf("no records provided for insert on table %s", table)
	}

	columns := unionColumns(records)
	if len(columns) == 0 {
		// Nothing left after sanitizing: let every column take its default.
		var b strings.Builder
		fmt.Fprintf(&b, "INSERT INTO %s (id) VALUES ", pgx.Identifier{table}.Sanitize())
		for i := range records {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("(DEFAULT)")
		}
		b.WriteString(" RETURNING id::text")
		return b.String(), nil, nil
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}

	var (
		b    strings.Builder
		args []any
	)
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", pgx.Identifier{table}.Sanitize(), strings.Join(quoted, ", "))

	for i, rec := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, col := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			v, ok := rec[col]
			if !ok {
				b.WriteString("DEFAULT")
				continue
			}
			arg, err := formatValue(v)
			if err != nil {
				return "", nil, fmt.Errorf("row %d column %s: %w", i, col, err)
			}
			args = append(args, arg)
			if len(args) > maxParams {
				return "", nil, fmt.Errorf("insert on table %s exceeds %d parameters", table, maxParams)
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(len(args)))
		}
		b.WriteByte(')')
	}
	b.WriteString(" RETURNING id::text")

	return b.String(), args, nil
}

func unionColumns(records []core.Record) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return columns
}

// formatValue converts decoded JSON values to driver arguments. Numbers are
// sent as text so Postgres parses them for the column type; nested objects
// and arrays go to json/jsonb columns as their encoded text.
func formatValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		return val.String(), nil
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return val, nil
	}
}
