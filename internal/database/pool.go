package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"syscall"
	"time"

	"github.com/lib/pq"
)

// Health is the database part of GET /health.
type Health struct {
	Healthy      bool          `json:"healthy"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
	OpenConns    int           `json:"open_connections"`
	InUse        int           `json:"in_use"`
	Idle         int           `json:"idle"`
	WaitCount    int64         `json:"wait_count"`
	Warnings     []string      `json:"warnings,omitempty"`
}

// Check pings the database and reports pool pressure.
func (db *DB) Check(ctx context.Context) Health {
	stats := db.Stats()
	h := Health{
		OpenConns: stats.OpenConnections,
		InUse:     stats.InUse,
		Idle:      stats.Idle,
		WaitCount: stats.WaitCount,
		Warnings:  poolWarnings(stats),
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	err := db.PingContext(pingCtx)
	h.ResponseTime = time.Since(start)

	if err != nil {
		h.Error = err.Error()
		slog.Error("Database health check failed", "error", err)
		return h
	}
	h.Healthy = true
	for _, w := range h.Warnings {
		slog.Warn("Database pool pressure", "warning", w)
	}
	return h
}

func poolWarnings(stats sql.DBStats) []string {
	var warnings []string
	if stats.MaxOpenConnections > 0 && stats.InUse*10 > stats.MaxOpenConnections*9 {
		warnings = append(warnings, fmt.Sprintf("%d of %d connections in use", stats.InUse, stats.MaxOpenConnections))
	}
	if stats.WaitCount > 0 && stats.WaitDuration > time.Second {
		warnings = append(warnings, fmt.Sprintf("%d waits totalling %s", stats.WaitCount, stats.WaitDuration))
	}
	return warnings
}

// QueryWithRetry retries reads that failed because the connection dropped.
// Backoff stops as soon as ctx is done.
func (db *DB) QueryWithRetry(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	const attempts = 3
	const backoff = 100 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		rows, err := db.QueryContext(ctx, query, args...)
		if err == nil {
			return rows, nil
		}
		if !isRetryableError(err) {
			return nil, err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		slog.Warn("Database query failed, retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * backoff):
		}
	}

	return nil, fmt.Errorf("query failed after %d attempts: %w", attempts, lastErr)
}

// isRetryableError reports connection level failures: a bad pooled
// connection, a refused or reset socket, a network timeout or a Postgres
// connection exception (SQLSTATE class 08).
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "08"
	}
	return false
}
