// Copyright (c) 2025 KnitAndCalc.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the stash sync API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg)

# Endpoints

Health:

	GET /health

Ingest (public, POST enforced inside the handler so other verbs get the
JSON 405 body the client expects):

	/api/yarn - Submit a stash snapshot

Admin dashboard (session token from /admin/login, sent as
Authorization: Bearer):

	POST /admin/login     - Exchange credentials for a session token
	GET  /admin/dashboard - Fleet stats, recent requests, usage averages,
	                        user table; ?expand=<userId> for detail

# Handler Initialization

The router creates handler instances with dependency injection:

	ingestHandler := handlers.NewIngestHandler(db, cfg)
	dashboardHandler := handlers.NewDashboardHandler(db, cfg)

All handlers receive the database connection and configuration.
*/
package router
