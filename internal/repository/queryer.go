package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// resultRows is the part of a driver cursor the store needs.
type resultRows interface {
	Columns() []string
	Next() bool
	Values() ([]any, error)
	Err() error
	Close()
}

// queryer runs a read query on a backend.
type queryer interface {
	Query(ctx context.Context, query string, args ...any) (resultRows, error)
	Ping(ctx context.Context) error
	Style() PlaceholderStyle
}

// pgxQueryer runs queries on a pgx connection pool.
type pgxQueryer struct {
	pool *pgxpool.Pool
}

func (q pgxQueryer) Query(ctx context.Context, query string, args ...any) (resultRows, error) {
	rows, err := q.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

func (q pgxQueryer) Ping(ctx context.Context) error { return q.pool.Ping(ctx) }

func (q pgxQueryer) Style() PlaceholderStyle { return PlaceholderDollar }

type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Columns() []string {
	fields := r.rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	return cols
}

func (r *pgxRows) Next() bool             { return r.rows.Next() }
func (r *pgxRows) Values() ([]any, error) { return r.rows.Values() }
func (r *pgxRows) Err() error             { return r.rows.Err() }
func (r *pgxRows) Close()                 { r.rows.Close() }

// sqlQueryer runs queries through database/sql (MySQL, SQLite).
type sqlQueryer struct {
	db *sql.DB
}

func (q sqlQueryer) Query(ctx context.Context, query string, args ...any) (resultRows, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("columns: %w", err)
	}
	return &sqlRows{rows: rows, columns: cols}, nil
}

func (q sqlQueryer) Ping(ctx context.Context) error { return q.db.PingContext(ctx) }

func (q sqlQueryer) Style() PlaceholderStyle { return PlaceholderQuestion }

type sqlRows struct {
	rows    *sql.Rows
	columns []string
}

func (r *sqlRows) Columns() []string { return r.columns }
func (r *sqlRows) Next() bool        { return r.rows.Next() }
func (r *sqlRows) Err() error        { return r.rows.Err() }
func (r *sqlRows) Close()            { _ = r.rows.Close() }

func (r *sqlRows) Values() ([]any, error) {
	values := make([]any, len(r.columns))
	ptrs := make([]any, len(r.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return values, nil
}
