package postgres_test

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// assign copies vals into the scan destinations the way pgx would.
func assign(dest []any, vals ...any) error {
	if len(dest) != len(vals) {
		return errors.New("scan: column count mismatch")
	}
	for i, v := range vals {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(v))
	}
	return nil
}

// rowStub implements pgx.Row
type rowStub struct{ scan func(dest ...any) error }

func (r rowStub) Scan(dest ...any) error { return r.scan(dest...) }

func rowOf(vals ...any) rowStub {
	return rowStub{scan: func(dest ...any) error { return assign(dest, vals...) }}
}

func rowErr(err error) rowStub {
	return rowStub{scan: func(_ ...any) error { return err }}
}

// rowsStub implements pgx.Rows over fixed values. Unused methods panic via the nil embed.
type rowsStub struct {
	pgx.Rows
	data   [][]any
	i      int
	err    error
	closed bool
}

func (r *rowsStub) Next() bool {
	if r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}
func (r *rowsStub) Scan(dest ...any) error { return assign(dest, r.data[r.i-1]...) }
func (r *rowsStub) Err() error             { return r.err }
func (r *rowsStub) Close()                 { r.closed = true }

type execCall struct {
	sql  string
	args []any
}

// poolStub implements postgres.PgxPool and records every statement.
type poolStub struct {
	execErr   error
	execErrOn string
	tag       string
	rows      []rowStub
	query     *rowsStub
	queryErr  error
	queryArgs []any
	beginErr  error

	execs []execCall
	tx    *txStub
}

func (p *poolStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.execs = append(p.execs, execCall{sql: sql, args: args})
	if p.execErr != nil && (p.execErrOn == "" || strings.Contains(sql, p.execErrOn)) {
		return pgconn.CommandTag{}, p.execErr
	}
	tag := p.tag
	if tag == "" {
		tag = "INSERT 0 1"
	}
	return pgconn.NewCommandTag(tag), nil
}

// QueryRow pops configured rows in order.
func (p *poolStub) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	if len(p.rows) == 0 {
		return rowErr(errors.New("no row configured"))
	}
	r := p.rows[0]
	p.rows = p.rows[1:]
	return r
}

func (p *poolStub) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	p.queryArgs = args
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	if p.query == nil {
		return &rowsStub{}, nil
	}
	return p.query, nil
}

func (p *poolStub) BeginTx(_ context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	p.tx = &txStub{pool: p}
	return p.tx, nil
}

// execSQL lists recorded statements for assertions.
func (p *poolStub) execSQL() []string {
	out := make([]string, 0, len(p.execs))
	for _, e := range p.execs {
		out = append(out, e.sql)
	}
	return out
}

// txStub forwards statements to its pool and records how it ended.
type txStub struct {
	pgx.Tx
	pool       *poolStub
	committed  bool
	rolledBack bool
}

func (t *txStub) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.pool.Exec(ctx, sql, args...)
}

func (t *txStub) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.pool.QueryRow(ctx, sql, args...)
}

func (t *txStub) Commit(_ context.Context) error {
	t.committed = true
	return nil
}

func (t *txStub) Rollback(_ context.Context) error {
	t.rolledBack = true
	return nil
}
