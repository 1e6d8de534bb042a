// Copyright (c) 2025 KnitAndCalc.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/knitandcalc/stash-server/auth"
	"github.com/knitandcalc/stash-server/cliparse"
	"github.com/knitandcalc/stash-server/middleware"
	"github.com/knitandcalc/stash-server/models"
)

// recentRequestLimit is how many request_log rows the activity feed shows.
const recentRequestLimit = 5

type DashboardHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewDashboardHandler(db *sql.DB, cfg cliparse.Config) *DashboardHandler {
	return &DashboardHandler{db: db, cfg: cfg}
}

// Login handles POST /admin/login
func (h *DashboardHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if !auth.CredentialsMatch(req.Username, req.Password, h.cfg.AdminUsername, h.cfg.AdminPassword) {
		slog.Info("dashboard login rejected", "username", req.Username)
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	expiresAt := time.Now().Add(auth.SessionLifetime)
	token := auth.GenerateSessionToken(req.Username, h.cfg.SessionSalt, expiresAt)

	slog.Info("dashboard login", "username", req.Username)

	middleware.JSONResponse(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// GetDashboard handles GET /admin/dashboard
// Read-only: fleet stats, recent requests, usage averages, per-user
// summaries, and optionally one expanded user via ?expand=<userId>.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	var resp models.DashboardResponse

	err := h.db.QueryRow(`SELECT COUNT(*) FROM yarn_stash_submissions`).
		Scan(&resp.Stats.TotalSubmissions)
	if err != nil {
		slog.Error("failed to count submissions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	err = h.db.QueryRow(`SELECT COUNT(DISTINCT user_id) FROM yarn_stash_submissions`).
		Scan(&resp.Stats.UniqueUsers)
	if err != nil {
		slog.Error("failed to count users", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	users, fleet, err := h.collectUserSummaries()
	if err != nil {
		slog.Error("failed to collect user summaries", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	resp.Users = users
	resp.Stats.TotalYarns = fleet.Yarns
	resp.Stats.TotalMeters = fleet.Meters
	resp.Stats.TotalGrams = fleet.Grams

	averages, err := h.collectUsageAverages()
	if err != nil {
		slog.Error("failed to compute usage averages", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	resp.UsageAverages = averages

	recent, err := h.collectRecentRequests()
	if err != nil {
		slog.Error("failed to load recent requests", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	resp.RecentRequests = recent

	if expand := r.URL.Query().Get("expand"); expand != "" {
		detail, err := h.collectUserDetail(expand)
		if err == sql.ErrNoRows {
			middleware.ErrorResponse(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			slog.Error("failed to expand user", "error", err, "user_id", expand)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		resp.UserDetail = detail
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// authorize checks the Bearer session token. Writes the 401 itself.
func (h *DashboardHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authorization required")
		return false
	}

	if _, err := auth.ValidateSessionToken(token, h.cfg.SessionSalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired session")
		return false
	}

	return true
}

// collectUserSummaries builds one row per user from their latest
// submission, newest first, and accumulates the fleet-wide inventory
// totals over those latest payloads only. Superseded history rows never
// count toward the totals.
func (h *DashboardHandler) collectUserSummaries() ([]models.UserSummary, InventoryTotals, error) {
	var fleet InventoryTotals

	rows, err := h.db.Query(`
		SELECT user_id, MAX(timestamp_last_received) AS last_received, COUNT(*)
		FROM yarn_stash_submissions
		GROUP BY user_id
		ORDER BY last_received DESC
	`)
	if err != nil {
		return nil, fleet, err
	}
	defer rows.Close()

	type userRow struct {
		userID          string
		lastReceived    string
		submissionCount int
	}
	var userRows []userRow
	for rows.Next() {
		var u userRow
		if err := rows.Scan(&u.userID, &u.lastReceived, &u.submissionCount); err != nil {
			return nil, fleet, err
		}
		userRows = append(userRows, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fleet, err
	}

	summaries := []models.UserSummary{}
	for _, u := range userRows {
		var payloadJSON, appVersion string
		var yarnCount int
		// LIMIT 1 resolves last-received ties to a single stable row.
		err := h.db.QueryRow(`
			SELECT payload_json, yarn_count, app_version
			FROM yarn_stash_submissions
			WHERE user_id = $1 AND timestamp_last_received = $2
			LIMIT 1
		`, u.userID, u.lastReceived).Scan(&payloadJSON, &yarnCount, &appVersion)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fleet, err
		}

		payload := ParsePayload(payloadJSON)
		totals := TotalsForItems(payload.YarnStash)
		fleet.Add(totals)

		summary := models.UserSummary{
			UserID:          u.userID,
			UserIDShort:     shortID(u.userID),
			LastReceived:    u.lastReceived,
			YarnCount:       yarnCount,
			Meters:          totals.Meters,
			Grams:           totals.Grams,
			SubmissionCount: u.submissionCount,
			AppVersion:      appVersion,
		}
		if t, err := models.ParseTime(u.lastReceived); err == nil {
			summary.LastReceivedAgo = humanize.Time(t)
		}
		summaries = append(summaries, summary)
	}

	return summaries, fleet, nil
}

// collectUsageAverages means each usage counter over all stored rows
// carrying usageStatistics. See UsageAccumulator for why this is not
// latest-only.
func (h *DashboardHandler) collectUsageAverages() (map[string]float64, error) {
	rows, err := h.db.Query(`SELECT payload_json FROM yarn_stash_submissions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	acc := NewUsageAccumulator()
	for rows.Next() {
		var payloadJSON string
		if err := rows.Scan(&payloadJSON); err != nil {
			return nil, err
		}
		acc.Add(ParsePayload(payloadJSON).UsageStatistics)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return acc.Averages(), nil
}

func (h *DashboardHandler) collectRecentRequests() ([]models.RequestLogEntry, error) {
	rows, err := h.db.Query(`
		SELECT id, timestamp, ip_address, device_info, app_version, http_method,
		       error_message, status_code, user_id, yarn_count,
		       has_payload_hash, has_salted_hash, has_idempotency_key
		FROM request_log
		ORDER BY timestamp DESC
		LIMIT $1
	`, recentRequestLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.RequestLogEntry{}
	for rows.Next() {
		var e models.RequestLogEntry
		var errMsg, userID sql.NullString
		var yarnCount sql.NullInt64
		var hasHash, hasSalted, hasKey int
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.IPAddress, &e.DeviceInfo,
			&e.AppVersion, &e.HTTPMethod, &errMsg, &e.StatusCode,
			&userID, &yarnCount, &hasHash, &hasSalted, &hasKey); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			e.ErrorMessage = &errMsg.String
		}
		if userID.Valid {
			e.UserID = &userID.String
		}
		if yarnCount.Valid {
			n := int(yarnCount.Int64)
			e.YarnCount = &n
		}
		e.HasPayloadHash = hasHash != 0
		e.HasSaltedHash = hasSalted != 0
		e.HasIdempotencyKey = hasKey != 0
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// collectUserDetail expands one user: latest payload items with derived
// totals, the latest payload's usage statistics, and full history newest
// first. Returns sql.ErrNoRows for unknown users.
func (h *DashboardHandler) collectUserDetail(userID string) (*models.UserDetail, error) {
	// MAX() over no rows yields NULL, not ErrNoRows.
	var lastReceived sql.NullString
	err := h.db.QueryRow(`
		SELECT MAX(timestamp_last_received)
		FROM yarn_stash_submissions
		WHERE user_id = $1
	`, userID).Scan(&lastReceived)
	if err != nil {
		return nil, err
	}
	if !lastReceived.Valid {
		return nil, sql.ErrNoRows
	}

	var payloadJSON string
	err = h.db.QueryRow(`
		SELECT payload_json
		FROM yarn_stash_submissions
		WHERE user_id = $1 AND timestamp_last_received = $2
		LIMIT 1
	`, userID, lastReceived.String).Scan(&payloadJSON)
	if err != nil {
		return nil, err
	}

	payload := ParsePayload(payloadJSON)

	detail := &models.UserDetail{
		UserID:          userID,
		Items:           []models.YarnItemDetail{},
		UsageStatistics: payload.UsageStatistics,
	}
	for _, item := range payload.YarnStash {
		detail.Items = append(detail.Items, ExpandItem(item))
	}

	rows, err := h.db.Query(`
		SELECT timestamp_last_received, yarn_count, app_version, receive_count
		FROM yarn_stash_submissions
		WHERE user_id = $1
		ORDER BY timestamp_last_received DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var entry models.HistoryEntry
		if err := rows.Scan(&entry.ReceivedAt, &entry.YarnCount,
			&entry.AppVersion, &entry.ReceiveCount); err != nil {
			return nil, err
		}
		detail.History = append(detail.History, entry)
	}

	return detail, rows.Err()
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
