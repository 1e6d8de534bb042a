// Copyright (c) 2025 KnitAndCalc.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

A .env file in the working directory is loaded (via godotenv) before the
environment is consulted.

# Config Fields

  - Port: Server listen port (default: 8419)
  - DatabaseURL: sqlite file path or PostgreSQL URL (required)
  - DatabaseType: "sqlite" (default) or "postgres"
  - PayloadSalt: Secret for salted payload digests (required)
  - SessionSalt: Secret for admin session token HMAC (required)
  - AdminUsername, AdminPassword: Dashboard credentials (required)

# CLI Flags

	-p              Server port
	-d              Database URL
	-t              Database type
	--payload-salt  Salted digest secret
	--session-salt  Session token secret
	--admin-user    Dashboard username
	--admin-pass    Dashboard password

# Environment Variables

Flags fall back to environment variables:

	PORT           → -p
	DATABASE_URL   → -d
	DATABASE_TYPE  → -t
	PAYLOAD_SALT   → --payload-salt
	SESSION_SALT   → --session-salt
	ADMIN_USERNAME → --admin-user
	ADMIN_PASSWORD → --admin-pass

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if required values are missing:

  - DATABASE_URL must be provided
  - PAYLOAD_SALT must be provided
  - SESSION_SALT must be provided
  - ADMIN_USERNAME and ADMIN_PASSWORD must be provided
*/
package cliparse
