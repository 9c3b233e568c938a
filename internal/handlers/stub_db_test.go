package handlers

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
)

// A minimal database/sql driver for handler tests. It records every
// statement the handler issues and answers them from canned results matched
// by substring, so webhook behavior can be asserted without a live MySQL.

type stubCall struct {
	query string
	args  []driver.Value
}

type stubResult struct {
	lastInsertID int64
	rowsAffected int64
}

func (r stubResult) LastInsertId() (int64, error) { return r.lastInsertID, nil }
func (r stubResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

type stubRows struct {
	columns []string
	values  [][]driver.Value
	pos     int
}

func (r *stubRows) Columns() []string { return r.columns }
func (r *stubRows) Close() error      { return nil }
func (r *stubRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.pos])
	r.pos++
	return nil
}

type stubConn struct {
	mu      sync.Mutex
	execs   []stubCall
	queries []stubCall

	// Keyed by a substring of the statement. Statements with no match get
	// a one-row-affected result / zero rows respectively.
	execResults map[string]stubResult
	queryRows   map[string]func() *stubRows
}

func (c *stubConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("prepared statements not supported by stub")
}
func (c *stubConn) Close() error              { return nil }
func (c *stubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

func (c *stubConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	vals := make([]driver.Value, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, stubCall{query: query, args: vals})
	for substr, res := range c.execResults {
		if strings.Contains(query, substr) {
			return res, nil
		}
	}
	return stubResult{rowsAffected: 1}, nil
}

func (c *stubConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	vals := make([]driver.Value, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, stubCall{query: query, args: vals})
	for substr, rows := range c.queryRows {
		if strings.Contains(query, substr) {
			return rows(), nil
		}
	}
	return &stubRows{}, nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubConnector struct{ conn *stubConn }

func (c stubConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c stubConnector) Driver() driver.Driver                        { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("open stub connections through sql.OpenDB")
}

func newStubDB(conn *stubConn) *sql.DB {
	db := sql.OpenDB(stubConnector{conn: conn})
	db.SetMaxOpenConns(1)
	return db
}

// execsMatching returns the recorded Exec calls whose statement contains
// substr.
func (c *stubConn) execsMatching(substr string) []stubCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matched []stubCall
	for _, call := range c.execs {
		if strings.Contains(call.query, substr) {
			matched = append(matched, call)
		}
	}
	return matched
}
