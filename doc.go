// Copyright (c) 2025 KnitAndCalc.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the KnitAndCalc stash sync server.

The server receives anonymous yarn stash snapshots from the iOS app,
stores them idempotently (one row per user and content fingerprint), and
serves an operator dashboard with fleet-wide aggregates.

# Starting the Server

The server requires environment variables, a .env file, or CLI flags:

	DATABASE_URL=./yarn.db PAYLOAD_SALT=... SESSION_SALT=... \
	ADMIN_USERNAME=... ADMIN_PASSWORD=... go run .

Or with flags:

	go run . -p 8419 -d ./yarn.db -t sqlite

# Configuration

Required settings:

  - DATABASE_URL (-d): sqlite file path or PostgreSQL URL
  - PAYLOAD_SALT (--payload-salt): secret for salted payload digests
  - SESSION_SALT (--session-salt): secret for admin session token HMAC
  - ADMIN_USERNAME / ADMIN_PASSWORD: dashboard credentials

Optional settings:

  - PORT (-p): server port (default: 8419)
  - DATABASE_TYPE (-t): "sqlite" (default) or "postgres"

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (ingest, dashboard) and aggregation
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers, client IP resolution
  - models: Wire payload, stored row, and response types
  - auth: Payload digests and admin session tokens
  - db: Schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
