// Copyright (c) 2025 KnitAndCalc.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (duration_ms).

# CORS Middleware

Enable cross-origin requests for the dashboard frontend:

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusUnauthorized, "message")

Parse JSON request bodies:

	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Resolve the submitting client's address: first X-Forwarded-For entry
(comma-separated list, trimmed), falling back to the connection address,
then "Unknown":

	ip := middleware.GetClientIP(r)

# Provenance Headers

Read a header with fallbacks and the "Unknown" sentinel:

	device := middleware.HeaderOrUnknown(r, "X-Device-Info", "User-Agent")
	version := middleware.HeaderOrUnknown(r, "X-App-Version")
*/
package middleware
