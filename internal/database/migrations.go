package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	for i, migration := range Migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

// Migrations run in order; every statement is idempotent.
var Migrations = []string{
	createExtensions,
	createUsersTable,
	createEventsTable,
	createTablesTable,
	createReservationsTable,
	createReservationPaymentsTable,
	addPaymentSettlement,
	createReservationTicketsTable,
	createReservationIndexes,
}

const createExtensions = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    name VARCHAR(255) NOT NULL,
    phone_number VARCHAR(50),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// date keeps whatever encoding the venue supplied; it is parsed on read.
const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    title VARCHAR(500) NOT NULL,
    venue VARCHAR(255) NOT NULL,
    date VARCHAR(64) NOT NULL,
    image TEXT NOT NULL DEFAULT '',
    status VARCHAR(50),
    time VARCHAR(20),
    age_limit VARCHAR(20),
    end_time VARCHAR(20),
    price VARCHAR(50),
    description TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createTablesTable = `
CREATE TABLE IF NOT EXISTS tables (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    name VARCHAR(100) NOT NULL,
    zone VARCHAR(100),
    capacity INTEGER NOT NULL CHECK (capacity > 0),
    min_spend NUMERIC(10,2) NOT NULL CHECK (min_spend >= 0),
    total_cost NUMERIC(10,2) NOT NULL CHECK (total_cost >= 0),
    available BOOLEAN NOT NULL DEFAULT TRUE,
    location_description TEXT,
    features TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createReservationsTable = `
CREATE TABLE IF NOT EXISTS table_reservations (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    reservation_code VARCHAR(16) UNIQUE NOT NULL,
    table_id UUID NOT NULL REFERENCES tables(id),
    event_id UUID NOT NULL REFERENCES events(id),
    user_id UUID NOT NULL REFERENCES users(id),
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    num_people INTEGER NOT NULL CHECK (num_people > 0),
    guest_phones TEXT[] NOT NULL DEFAULT '{}',
    total_amount NUMERIC(10,2) NOT NULL,
    amount_paid NUMERIC(10,2) NOT NULL DEFAULT 0,
    contact_name VARCHAR(255) NOT NULL,
    contact_email VARCHAR(255) NOT NULL,
    contact_phone VARCHAR(50) NOT NULL,
    special_requests TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending', 'confirmed', 'completed', 'cancelled')),
    CHECK (amount_paid >= 0 AND amount_paid <= total_amount)
);`

const createReservationPaymentsTable = `
CREATE TABLE IF NOT EXISTS table_reservation_payments (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    reservation_id UUID NOT NULL REFERENCES table_reservations(id) ON DELETE CASCADE,
    payment_id VARCHAR(255) UNIQUE NOT NULL,
    num_people INTEGER NOT NULL CHECK (num_people > 0),
    amount NUMERIC(10,2) NOT NULL CHECK (amount > 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// settlement moves from authorized to captured or released once the
// consumers have told the gateway.
const addPaymentSettlement = `
ALTER TABLE table_reservation_payments
    ADD COLUMN IF NOT EXISTS settlement VARCHAR(16) NOT NULL DEFAULT 'authorized'
        CHECK (settlement IN ('authorized', 'captured', 'released')),
    ADD COLUMN IF NOT EXISTS settled_at TIMESTAMPTZ;`

// ticket_id points at an entry ticket issued by the venue's ticketing.
const createReservationTicketsTable = `
CREATE TABLE IF NOT EXISTS table_reservation_tickets (
    reservation_id UUID NOT NULL REFERENCES table_reservations(id) ON DELETE CASCADE,
    ticket_id UUID NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (reservation_id, ticket_id)
);`

const createReservationIndexes = `
CREATE INDEX IF NOT EXISTS tables_event_id_idx ON tables (event_id);
CREATE INDEX IF NOT EXISTS table_reservations_user_id_idx ON table_reservations (user_id);
CREATE INDEX IF NOT EXISTS table_reservations_status_idx ON table_reservations (status);
CREATE INDEX IF NOT EXISTS table_reservation_payments_unsettled_idx
    ON table_reservation_payments (reservation_id) WHERE settlement = 'authorized';`
