package postgres

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/VivreleHpi/crohn-companion-app/internal/backend"
)

var sqlOps = map[backend.Op]string{
	backend.OpEq:  "=",
	backend.OpGte: ">=",
	backend.OpLte: "<=",
}

func ident(name string) (string, error) {
	if !backend.ValidColumn(name) {
		return "", fmt.Errorf("invalid identifier %q", name)
	}
	return pgx.Identifier{name}.Sanitize(), nil
}

// argValue turns a row value into a driver argument. Lists and objects are
// sent as JSON text for jsonb columns.
func argValue(v any) (any, error) {
	switch v.(type) {
	case []any, map[string]any, []string:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return v, nil
	}
}

func sortedColumns(r backend.Row, skip string) []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		if c == skip {
			continue
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func buildSelect(table string, q backend.Query) (string, []any, error) {
	tbl, err := ident(table)
	if err != nil {
		return "", nil, err
	}

	projection := "*"
	if len(q.Columns) > 0 {
		cols := make([]string, 0, len(q.Columns))
		for _, c := range q.Columns {
			id, err := ident(c)
			if err != nil {
				return "", nil, err
			}
			cols = append(cols, id)
		}
		projection = strings.Join(cols, ", ")
	}

	var sb strings.Builder
	args := make([]any, 0, len(q.Filters))
	fmt.Fprintf(&sb, "SELECT %s FROM %s", projection, tbl)

	for i, f := range q.Filters {
		if err := f.Validate(); err != nil {
			return "", nil, err
		}
		col, _ := ident(f.Column)
		v, err := argValue(f.Value)
		if err != nil {
			return "", nil, err
		}
		args = append(args, v)
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		fmt.Fprintf(&sb, "%s %s $%d", col, sqlOps[f.Op], len(args))
	}

	if q.Order != nil {
		col, err := ident(q.Order.Column)
		if err != nil {
			return "", nil, err
		}
		dir := "DESC"
		if q.Order.Ascending {
			dir = "ASC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s NULLS LAST", col, dir)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}

	return fmt.Sprintf("SELECT row_to_json(q)::text FROM (%s) q", sb.String()), args, nil
}

func buildInsert(table string, r backend.Row) (string, []any, error) {
	tbl, err := ident(table)
	if err != nil {
		return "", nil, err
	}
	cols := sortedColumns(r, "")
	if len(cols) == 0 {
		return fmt.Sprintf("INSERT INTO %s AS t DEFAULT VALUES RETURNING row_to_json(t)::text", tbl), nil, nil
	}

	names := make([]string, 0, len(cols))
	holders := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for _, c := range cols {
		id, err := ident(c)
		if err != nil {
			return "", nil, err
		}
		v, err := argValue(r[c])
		if err != nil {
			return "", nil, err
		}
		names = append(names, id)
		args = append(args, v)
		holders = append(holders, fmt.Sprintf("$%d", len(args)))
	}
	q := fmt.Sprintf("INSERT INTO %s AS t (%s) VALUES (%s) RETURNING row_to_json(t)::text",
		tbl, strings.Join(names, ", "), strings.Join(holders, ", "))
	return q, args, nil
}

// buildUpdate never rewrites the id column. where narrows the row further so
// a check-and-set runs as one statement.
func buildUpdate(table, id string, patch backend.Row, where []backend.Filter) (string, []any, error) {
	tbl, err := ident(table)
	if err != nil {
		return "", nil, err
	}
	cols := sortedColumns(patch, "id")
	if len(cols) == 0 {
		return "", nil, errEmptyPatch
	}

	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for _, c := range cols {
		col, err := ident(c)
		if err != nil {
			return "", nil, err
		}
		v, err := argValue(patch[c])
		if err != nil {
			return "", nil, err
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	args = append(args, id)
	cond := fmt.Sprintf(`t."id" = $%d`, len(args))
	for _, f := range where {
		if err := f.Validate(); err != nil {
			return "", nil, err
		}
		col, _ := ident(f.Column)
		v, err := argValue(f.Value)
		if err != nil {
			return "", nil, err
		}
		args = append(args, v)
		cond += fmt.Sprintf(" AND t.%s %s $%d", col, sqlOps[f.Op], len(args))
	}
	q := fmt.Sprintf(`UPDATE %s AS t SET %s WHERE %s RETURNING row_to_json(t)::text`,
		tbl, strings.Join(sets, ", "), cond)
	return q, args, nil
}
