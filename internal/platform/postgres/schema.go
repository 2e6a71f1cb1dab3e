// Package postgres owns the relational schema. EnsureSchema is idempotent so
// the server can apply it on boot and the integration harness can apply it to
// a fresh container.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            UUID PRIMARY KEY,
	handle        TEXT NOT NULL,
	email         TEXT NOT NULL,
	phone         TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	status        TEXT NOT NULL,
	profile       JSONB NOT NULL DEFAULT '{}',
	trust_status  TEXT NOT NULL,
	trust_score   INTEGER NOT NULL DEFAULT 0,
	findings      JSONB NOT NULL DEFAULT '[]',
	verified_at   TIMESTAMPTZ,
	verified_by   UUID,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_key ON accounts (email);
CREATE UNIQUE INDEX IF NOT EXISTS accounts_handle_key ON accounts (LOWER(handle));
CREATE INDEX IF NOT EXISTS accounts_role_status_idx ON accounts (role, status);
CREATE INDEX IF NOT EXISTS accounts_trust_status_idx ON accounts (trust_status);

CREATE TABLE IF NOT EXISTS supporting_documents (
	id          UUID PRIMARY KEY,
	account_id  UUID NOT NULL REFERENCES accounts (id),
	kind        TEXT NOT NULL,
	file_name   TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	note        TEXT NOT NULL DEFAULT '',
	uploaded_at TIMESTAMPTZ NOT NULL,
	reviewed_at TIMESTAMPTZ,
	reviewed_by UUID
);

CREATE INDEX IF NOT EXISTS supporting_documents_status_idx ON supporting_documents (status, uploaded_at);
CREATE INDEX IF NOT EXISTS supporting_documents_account_idx ON supporting_documents (account_id);

CREATE TABLE IF NOT EXISTS inventory_lots (
	id           UUID PRIMARY KEY,
	bank_id      UUID NOT NULL,
	blood_group  TEXT NOT NULL,
	units        INTEGER NOT NULL,
	expiry_date  TIMESTAMPTZ NOT NULL,
	collected_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS inventory_lots_fifo_idx ON inventory_lots (bank_id, blood_group, expiry_date);
CREATE INDEX IF NOT EXISTS inventory_lots_expiry_idx ON inventory_lots (expiry_date);

CREATE TABLE IF NOT EXISTS notifications (
	id         UUID PRIMARY KEY,
	account_id UUID NOT NULL,
	message    TEXT NOT NULL,
	type       TEXT NOT NULL,
	subject    TEXT NOT NULL DEFAULT '',
	read       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS notifications_account_idx ON notifications (account_id, created_at DESC);
CREATE INDEX IF NOT EXISTS notifications_dedup_idx ON notifications (account_id, type, subject) WHERE NOT read;

CREATE TABLE IF NOT EXISTS blood_requests (
	id            UUID PRIMARY KEY,
	hospital_id   UUID NOT NULL,
	bank_id       UUID,
	patient_name  TEXT NOT NULL DEFAULT '',
	patient_ref   TEXT NOT NULL,
	blood_group   TEXT NOT NULL,
	units         INTEGER NOT NULL,
	priority      TEXT NOT NULL,
	status        TEXT NOT NULL,
	reason        TEXT NOT NULL DEFAULT '',
	decision_note TEXT NOT NULL DEFAULT '',
	decided_at    TIMESTAMPTZ,
	decided_by    UUID,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS blood_requests_hospital_idx ON blood_requests (hospital_id, created_at DESC);
CREATE INDEX IF NOT EXISTS blood_requests_pending_idx ON blood_requests (created_at) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS campaigns (
	id            UUID PRIMARY KEY,
	organizer_id  UUID NOT NULL,
	title         TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	location      TEXT NOT NULL DEFAULT '',
	scheduled_for TIMESTAMPTZ NOT NULL,
	target_groups TEXT[] NOT NULL DEFAULT '{}',
	status        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS campaigns_upcoming_idx ON campaigns (scheduled_for) WHERE status = 'scheduled';
CREATE INDEX IF NOT EXISTS campaigns_organizer_idx ON campaigns (organizer_id, created_at DESC);

CREATE TABLE IF NOT EXISTS appointments (
	id          UUID PRIMARY KEY,
	donor_id    UUID NOT NULL,
	campaign_id UUID,
	bank_id     UUID,
	date        TIMESTAMPTZ NOT NULL,
	time_slot   TEXT NOT NULL,
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS appointments_donor_idx ON appointments (donor_id, date);
CREATE INDEX IF NOT EXISTS appointments_campaign_idx ON appointments (campaign_id, date);
CREATE INDEX IF NOT EXISTS appointments_bank_completed_idx ON appointments (bank_id, date DESC) WHERE status = 'completed';
`

// EnsureSchema creates any missing tables and indexes.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
