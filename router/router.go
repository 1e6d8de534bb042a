// Copyright (c) 2025 KnitAndCalc.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/knitandcalc/stash-server/cliparse"
	"github.com/knitandcalc/stash-server/handlers"
	"github.com/knitandcalc/stash-server/middleware"
)

func NewRouter(db *sql.DB, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	ingestHandler := handlers.NewIngestHandler(db, cfg)
	dashboardHandler := handlers.NewDashboardHandler(db, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Ingest endpoint. No method pattern: the handler gates the method
	// itself so wrong-verb requests get the JSON 405 body and a
	// request_log row.
	mux.HandleFunc("/api/yarn", middleware.WithLogging(ingestHandler.SubmitStash))

	// Admin dashboard
	mux.HandleFunc("POST /admin/login", middleware.WithLogging(dashboardHandler.Login))
	mux.HandleFunc("GET /admin/dashboard", middleware.WithLogging(dashboardHandler.GetDashboard))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("KnitAndCalc stash sync API v1"))
	})

	return mux
}
