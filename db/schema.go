// Copyright (c) 2025 KnitAndCalc.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// Runs once at startup, not per request.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Timestamps are fixed-width RFC3339 UTC text (models.TimeLayout) and
// booleans are 0/1 integers so the schema works unchanged on sqlite and
// postgres.
const schema = `
-- Stash submissions: one row per (user_id, idempotency_key)
CREATE TABLE IF NOT EXISTS yarn_stash_submissions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    idempotency_key TEXT NOT NULL,
    payload_json TEXT NOT NULL,
    timestamp_first_received TEXT NOT NULL,
    timestamp_last_received TEXT NOT NULL,
    timestamp_client TEXT NOT NULL,
    ip_address TEXT,
    device_info TEXT,
    app_version TEXT,
    payload_hash TEXT,
    payload_hash_salted TEXT,
    hash_valid INTEGER NOT NULL DEFAULT 0,
    salted_hash_valid INTEGER NOT NULL DEFAULT 0,
    yarn_count INTEGER NOT NULL DEFAULT 0,
    receive_count INTEGER NOT NULL DEFAULT 1,
    UNIQUE (user_id, idempotency_key)
);

CREATE INDEX IF NOT EXISTS idx_submission_user_id ON yarn_stash_submissions(user_id);
CREATE INDEX IF NOT EXISTS idx_submission_last_received ON yarn_stash_submissions(timestamp_last_received);

-- Request log: every ingest outcome, success or failure
CREATE TABLE IF NOT EXISTS request_log (
    id TEXT PRIMARY KEY,
    timestamp TEXT NOT NULL,
    ip_address TEXT,
    device_info TEXT,
    app_version TEXT,
    http_method TEXT,
    raw_body TEXT,
    error_message TEXT,
    status_code INTEGER,
    user_id TEXT,
    yarn_count INTEGER,
    has_payload_hash INTEGER NOT NULL DEFAULT 0,
    has_salted_hash INTEGER NOT NULL DEFAULT 0,
    has_idempotency_key INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_request_log_timestamp ON request_log(timestamp);
`
