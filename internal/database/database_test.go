package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(fmt.Errorf("query: %w", driver.ErrBadConn)))
	assert.True(t, isRetryableError(fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)))
	assert.True(t, isRetryableError(&pq.Error{Code: "08006"}))
	assert.False(t, isRetryableError(&pq.Error{Code: "23505"}))
	assert.False(t, isRetryableError(errors.New("duplicate key value violates unique constraint")))
	assert.False(t, isRetryableError(nil))
}

func TestPoolWarnings(t *testing.T) {
	assert.Empty(t, poolWarnings(sql.DBStats{MaxOpenConnections: 50, InUse: 10}))
	assert.Len(t, poolWarnings(sql.DBStats{MaxOpenConnections: 50, InUse: 48}), 1)
	assert.Len(t, poolWarnings(sql.DBStats{WaitCount: 3, WaitDuration: 2 * time.Second}), 1)
}

func TestMigrationsOrder(t *testing.T) {
	pos := func(table string) int {
		for i, m := range Migrations {
			if strings.Contains(m, "CREATE TABLE IF NOT EXISTS "+table+" ") {
				return i
			}
		}
		return -1
	}

	assert.Less(t, pos("users"), pos("table_reservations"))
	assert.Less(t, pos("events"), pos("tables"))
	assert.Less(t, pos("tables"), pos("table_reservations"))
	assert.Less(t, pos("table_reservations"), pos("table_reservation_payments"))
}

func TestDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "pierre", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=pierre sslmode=disable", cfg.DSN())
}

func TestDSNQuotesAwkwardValues(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "u", Password: `it's a secret`, DBName: "pierre"}
	assert.Equal(t, `host=db port=5432 user=u password='it\'s a secret' dbname=pierre`, cfg.DSN())
}

func TestMigrationsExtendPaymentsAfterCreatingThem(t *testing.T) {
	created, altered, tickets := -1, -1, -1
	for i, m := range Migrations {
		switch {
		case strings.Contains(m, "CREATE TABLE IF NOT EXISTS table_reservation_payments"):
			created = i
		case strings.Contains(m, "ALTER TABLE table_reservation_payments"):
			altered = i
		case strings.Contains(m, "CREATE TABLE IF NOT EXISTS table_reservation_tickets"):
			tickets = i
		}
	}
	assert.Less(t, created, altered)
	assert.Greater(t, tickets, created)
	assert.Contains(t, Migrations[altered], "ADD COLUMN IF NOT EXISTS settlement")
}
