package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/linkkeeper/internal/common"
)

// ConnectorOptions bound the pool and the initial handshake.
type ConnectorOptions struct {
	MaxOpenConns   int
	ConnectTimeout time.Duration
}

// Connector hands out one *sql.DB per process. The first successful open is
// cached; concurrent callers wait on the same attempt instead of opening
// their own pools, and a failed attempt leaves the connector empty so the
// next caller tries again.
type Connector struct {
	driver string
	dsn    string
	opts   ConnectorOptions

	mu sync.Mutex
	db *sql.DB
}

// NewConnector returns a Connector that has not touched the database yet.
func NewConnector(driver, dsn string, opts ConnectorOptions) *Connector {
	return &Connector{driver: driver, dsn: dsn, opts: opts}
}

// DB returns the shared handle, opening and pinging it on first use.
func (c *Connector) DB(ctx context.Context) (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}

	db, err := sql.Open(c.driver, c.dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if c.opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.opts.MaxOpenConns)
		db.SetMaxIdleConns(c.opts.MaxOpenConns)
	}

	pingCtx := ctx
	if c.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, c.opts.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, WrapError(err)
	}

	c.db = db
	return db, nil
}

// Ping checks the cached handle. It does not open one.
func (c *Connector) Ping(ctx context.Context) error {
	c.mu.Lock()
	db := c.db
	c.mu.Unlock()

	if db == nil {
		return fmt.Errorf("%w: database not opened", common.ErrServiceUnavailable)
	}

	pingCtx := ctx
	if c.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, c.opts.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		return WrapError(err)
	}
	return nil
}

// Close releases the pool if it was opened.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
