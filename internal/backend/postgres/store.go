// Package postgres implements backend.Backend on PostgreSQL. Queries go
// through database/sql with the pgx driver; the change feed is a LISTEN on
// the channel fed by the notify_record_change trigger.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/VivreleHpi/crohn-companion-app/internal/backend"
	"github.com/VivreleHpi/crohn-companion-app/internal/backend/postgres/migrations"
	"github.com/VivreleHpi/crohn-companion-app/internal/dbx"
	"github.com/VivreleHpi/crohn-companion-app/internal/logging"
)

// Channel is the NOTIFY channel written by the notify_record_change trigger.
const Channel = "record_changes"

var errEmptyPatch = errors.New("empty patch")

type Store struct {
	db      *sql.DB
	dsn     string
	tables  map[string]bool
	log     logging.Logger
	connect connectFunc
}

var _ backend.Backend = (*Store)(nil)

// Open connects to dsn. Migrations are not applied; call Migrate.
func Open(dsn string, tables []string, log logging.Logger) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return New(db, dsn, tables, log), nil
}

// New wraps an existing pool. dsn is used for the dedicated LISTEN connections.
func New(db *sql.DB, dsn string, tables []string, log logging.Logger) *Store {
	t := make(map[string]bool, len(tables))
	for _, name := range tables {
		t[name] = true
	}
	return &Store{db: db, dsn: dsn, tables: t, log: log, connect: pgxConnect}
}

func (s *Store) Conn() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, s.db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

func (s *Store) known(op, table string) error {
	if !s.tables[table] {
		return backend.Wrap(op, table, backend.ErrUnknownCollection)
	}
	return nil
}

func (s *Store) Select(ctx context.Context, collection string, q backend.Query) ([]backend.Row, error) {
	if err := s.known("select", collection); err != nil {
		return nil, err
	}
	query, args, err := buildSelect(collection, q)
	if err != nil {
		return nil, backend.Wrap("select", collection, err)
	}
	rows, err := queryRows(ctx, s.db, query, args)
	return rows, backend.Wrap("select", collection, err)
}

func (s *Store) Insert(ctx context.Context, collection string, rows ...backend.Row) ([]backend.Row, error) {
	if err := s.known("insert", collection); err != nil {
		return nil, err
	}

	var out []backend.Row
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		out = make([]backend.Row, 0, len(rows))
		for _, r := range rows {
			query, args, err := buildInsert(collection, r)
			if err != nil {
				return err
			}
			inserted, err := queryRows(ctx, tx, query, args)
			if err != nil {
				return err
			}
			out = append(out, inserted...)
		}
		return nil
	})
	if err != nil {
		return nil, backend.Wrap("insert", collection, err)
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, patch backend.Row, where ...backend.Filter) ([]backend.Row, error) {
	if err := s.known("update", collection); err != nil {
		return nil, err
	}
	query, args, err := buildUpdate(collection, id, patch, where)
	if errors.Is(err, errEmptyPatch) {
		filters := append([]backend.Filter{backend.Eq("id", id)}, where...)
		return s.Select(ctx, collection, backend.Query{Filters: filters})
	}
	if err != nil {
		return nil, backend.Wrap("update", collection, err)
	}
	rows, err := queryRows(ctx, s.db, query, args)
	return rows, backend.Wrap("update", collection, err)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := s.known("delete", collection); err != nil {
		return err
	}
	tbl, err := ident(collection)
	if err != nil {
		return backend.Wrap("delete", collection, err)
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE "id" = $1`, tbl), id)
	return backend.Wrap("delete", collection, err)
}

// queryRows runs a query returning one JSON object per row.
func queryRows(ctx context.Context, db dbx.DBTX, query string, args []any) ([]backend.Row, error) {
	rs, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rs.Close()

	out := []backend.Row{}
	for rs.Next() {
		var raw string
		if err := rs.Scan(&raw); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		r, err := backend.ParseRow([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
