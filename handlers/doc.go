// Copyright (c) 2025 KnitAndCalc.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the stash sync API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - IngestHandler: stash submission intake (POST /api/yarn)
  - DashboardHandler: admin login and the reporting view

Handlers are created via constructor functions that accept *sql.DB and Config:

	ingestHandler := handlers.NewIngestHandler(db, cfg)

# Ingest Flow

SubmitStash runs the request through ordered gates, logging every outcome
to request_log:

	method gate    → 405 Method not allowed
	body gate      → 400 Empty request body
	parse gate     → 400 Invalid JSON: <detail>
	schema gate    → 400 Missing required fields (userId, timestamp, yarnStash)
	digest gate    → 400 Invalid payload hash / Invalid salted payload hash
	upsert         → 200 with receive_count and is_update

The digest gate only runs when both X-Payload-Hash and
X-Payload-Hash-Salted arrive; otherwise verification is skipped and the
unchecked outcome is stored with the row.

The upsert is a single INSERT ... ON CONFLICT (user_id, idempotency_key)
DO UPDATE ... RETURNING statement, so concurrent duplicate submissions
serialize on the unique constraint and never create two rows. A conflict
updates timestamps, provenance and digest outcomes in place; the stored
payload and first-received timestamp are never touched.

# Aggregation

Pure computation lives in aggregate.go:

	totals := handlers.TotalsForItems(payload.YarnStash)
	acc := handlers.NewUsageAccumulator()

Inventory totals sum each user's latest payload only. Usage-counter
averages run over all historical rows carrying usageStatistics - the
counters are cumulative, inventory is a snapshot.

# Dashboard

GetDashboard assembles fleet stats, the recent request feed, usage
averages and the per-user table; ?expand=<userId> adds one user's full
detail and history. All reads, no writes. Requires a Bearer session
token from Login.
*/
package handlers
