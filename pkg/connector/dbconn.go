package connector

import (
	"context"
	"database/sql"

	"github.com/dataglade/dataglade-connect/pkg/pool"
)

// DBConn adapts one database/sql handle to the pool's Conn interface. The
// handle is pinned to a single underlying driver connection, so a pooled
// entry maps 1:1 to a server session: exclusive use while checked out, and
// cancellation poisons exactly one session.
type DBConn struct {
	db *sql.DB
}

// NewDBConn pins db to a single connection and wraps it.
func NewDBConn(db *sql.DB) *DBConn {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	// Lifetime and idle eviction belong to the pool manager, not the handle.
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	return &DBConn{db: db}
}

// Ping verifies the session is alive.
func (c *DBConn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close releases the underlying session.
func (c *DBConn) Close() error {
	return c.db.Close()
}

// DB exposes the underlying handle for statement execution.
func (c *DBConn) DB() *sql.DB {
	return c.db
}

var _ pool.Conn = (*DBConn)(nil)
