// Copyright (c) 2025 KnitAndCalc.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and
indexes. It runs once at process startup; the request path never touches
DDL.

# Tables

The schema includes:

  - yarn_stash_submissions: one row per (user_id, idempotency_key) pair,
    holding the verbatim payload, receive bookkeeping, provenance, and
    digest-check outcomes
  - request_log: one row per ingest request, successful or failed

# Portability

The same DDL runs on sqlite (modernc.org/sqlite) and postgres (lib/pq):
timestamps are fixed-width RFC3339 UTC text, booleans are 0/1 integers,
and row IDs are random hex strings generated in Go.

# Indexes

  - yarn_stash_submissions (user_id, idempotency_key) unique — the
    idempotent-upsert conflict target
  - yarn_stash_submissions user_id, timestamp_last_received
  - request_log timestamp
*/
package db
