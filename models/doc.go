// Copyright (c) 2025 KnitAndCalc.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - StashEnvelope: userId, timestamp, yarnStash (pointer fields for
    missing-field detection)
  - LoginRequest: username, password

# Response Types

Types for JSON responses:

  - IngestResponse: success, message, received_at, yarn_count,
    idempotency_key, receive_count, is_update
  - IngestErrorResponse: error, plus expected/received on digest failures
  - LoginResponse: token, expires_at
  - DashboardResponse: stats, recent_requests, usage_averages, users,
    optional user_detail
  - ErrorResponse: error, message

# Domain Types

Internal data structures:

  - YarnItem: one stash entry with optional numeric fields
  - StashPayload: the full client document as stored
  - Submission: one deduplicated stash row
  - RequestLogEntry: one ingest attempt, success or failure
  - FleetStats, UserSummary, YarnItemDetail, HistoryEntry, UserDetail:
    derived dashboard views

# Timestamps

Server-side timestamps are stored as fixed-width UTC text in TimeLayout
so lexicographic comparison in SQL matches chronological order. Use
FormatTime and ParseTime rather than formatting directly.
*/
package models
