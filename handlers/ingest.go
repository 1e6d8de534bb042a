// Copyright (c) 2025 KnitAndCalc.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/knitandcalc/stash-server/auth"
	"github.com/knitandcalc/stash-server/cliparse"
	"github.com/knitandcalc/stash-server/middleware"
	"github.com/knitandcalc/stash-server/models"
)

// rawBodyLimit caps the body copy kept in request_log (10KB).
const rawBodyLimit = 10000

type IngestHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewIngestHandler(db *sql.DB, cfg cliparse.Config) *IngestHandler {
	return &IngestHandler{db: db, cfg: cfg}
}

// requestRecord collects what every request_log row needs. Fields are
// filled in as the request progresses through the gates.
type requestRecord struct {
	ip                string
	deviceInfo        string
	appVersion        string
	method            string
	rawBody           string
	userID            *string
	yarnCount         *int
	hasPayloadHash    bool
	hasSaltedHash     bool
	hasIdempotencyKey bool
}

// SubmitStash handles /api/yarn.
//
// Registered without a method pattern: the 405 must carry the JSON error
// body the client parses, which ServeMux's built-in 405 does not.
func (h *IngestHandler) SubmitStash(w http.ResponseWriter, r *http.Request) {
	// Headers first, so even failed requests log full provenance.
	payloadHash := r.Header.Get("X-Payload-Hash")
	saltedHash := r.Header.Get("X-Payload-Hash-Salted")
	idempotencyKey := r.Header.Get("X-Idempotency-Key")

	rec := requestRecord{
		ip:                middleware.GetClientIP(r),
		deviceInfo:        middleware.HeaderOrUnknown(r, "X-Device-Info", "User-Agent"),
		appVersion:        middleware.HeaderOrUnknown(r, "X-App-Version"),
		method:            r.Method,
		hasPayloadHash:    payloadHash != "",
		hasSaltedHash:     saltedHash != "",
		hasIdempotencyKey: idempotencyKey != "",
	}

	if r.Method != http.MethodPost {
		h.reject(w, rec, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("failed to read request body", "error", err)
		h.reject(w, rec, http.StatusBadRequest, "Empty request body")
		return
	}
	defer r.Body.Close()
	rec.rawBody = truncate(string(body), rawBodyLimit)

	if len(body) == 0 {
		h.reject(w, rec, http.StatusBadRequest, "Empty request body")
		return
	}

	var env models.StashEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		h.reject(w, rec, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	if env.UserID != nil {
		rec.userID = env.UserID
	}
	if env.YarnStash != nil {
		n := len(*env.YarnStash)
		rec.yarnCount = &n
	}

	if missing := env.MissingFields(); len(missing) > 0 {
		// Log which fields were absent; the response body stays generic.
		h.logRequest(rec, http.StatusBadRequest, "Missing required fields: "+strings.Join(missing, ", "))
		writeIngestError(w, http.StatusBadRequest, models.IngestErrorResponse{
			Error: "Missing required fields (userId, timestamp, yarnStash)",
		})
		return
	}

	items := *env.YarnStash

	// Derive the idempotency key from the inventory list alone when the
	// client didn't supply one. Re-marshaling the typed items canonicalizes
	// whitespace and field order, so identical content always collides.
	if idempotencyKey == "" {
		canonical, err := json.Marshal(items)
		if err != nil {
			slog.Error("failed to canonicalize yarn stash", "error", err)
			h.reject(w, rec, http.StatusInternalServerError, "Database error")
			return
		}
		idempotencyKey = auth.HashPayload(canonical)
	}

	// Integrity check is opportunistic: only when both digests arrive.
	hashValid := false
	saltedHashValid := false
	if payloadHash != "" && saltedHash != "" {
		calculated := auth.HashPayload(body)
		calculatedSalted := auth.HashPayloadSalted(body, h.cfg.PayloadSalt)

		hashValid = auth.DigestsEqual(calculated, payloadHash)
		saltedHashValid = auth.DigestsEqual(calculatedSalted, saltedHash)

		if !hashValid {
			h.logRequest(rec, http.StatusBadRequest, "Invalid payload hash")
			writeIngestError(w, http.StatusBadRequest, models.IngestErrorResponse{
				Error:    "Invalid payload hash",
				Expected: calculated,
				Received: payloadHash,
			})
			return
		}
		if !saltedHashValid {
			h.logRequest(rec, http.StatusBadRequest, "Invalid salted payload hash")
			writeIngestError(w, http.StatusBadRequest, models.IngestErrorResponse{
				Error:    "Invalid salted payload hash",
				Expected: calculatedSalted,
				Received: saltedHash,
			})
			return
		}
	}

	submissionID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate submission ID", "error", err)
		h.reject(w, rec, http.StatusInternalServerError, "Database error")
		return
	}

	now := models.FormatTime(time.Now())

	// Single atomic upsert: a race between two identical submissions
	// serializes on the (user_id, idempotency_key) unique constraint.
	var receiveCount int
	err = h.db.QueryRow(`
		INSERT INTO yarn_stash_submissions
			(id, user_id, idempotency_key, payload_json,
			 timestamp_first_received, timestamp_last_received, timestamp_client,
			 ip_address, device_info, app_version,
			 payload_hash, payload_hash_salted, hash_valid, salted_hash_valid,
			 yarn_count, receive_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)
		ON CONFLICT (user_id, idempotency_key) DO UPDATE SET
			timestamp_last_received = excluded.timestamp_last_received,
			receive_count = yarn_stash_submissions.receive_count + 1,
			ip_address = excluded.ip_address,
			device_info = excluded.device_info,
			app_version = excluded.app_version,
			payload_hash = excluded.payload_hash,
			payload_hash_salted = excluded.payload_hash_salted,
			hash_valid = excluded.hash_valid,
			salted_hash_valid = excluded.salted_hash_valid
		RETURNING receive_count
	`, submissionID, *env.UserID, idempotencyKey, string(body),
		now, now, *env.Timestamp,
		rec.ip, rec.deviceInfo, rec.appVersion,
		nullIfEmpty(payloadHash), nullIfEmpty(saltedHash), boolToInt(hashValid), boolToInt(saltedHashValid),
		len(items)).Scan(&receiveCount)

	if err != nil {
		slog.Error("failed to upsert submission", "error", err, "user_id", *env.UserID)
		h.reject(w, rec, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	isUpdate := receiveCount > 1

	h.logRequest(rec, http.StatusOK, "")

	message := "Yarn stash data received (new)"
	if isUpdate {
		message = "Yarn stash data updated (no changes)"
	}

	slog.Info("stash submission stored",
		"user_id", *env.UserID,
		"yarn_count", len(items),
		"receive_count", receiveCount,
		"is_update", isUpdate,
	)

	middleware.JSONResponse(w, http.StatusOK, models.IngestResponse{
		Success:        true,
		Message:        message,
		ReceivedAt:     now,
		YarnCount:      len(items),
		IdempotencyKey: idempotencyKey,
		ReceiveCount:   receiveCount,
		IsUpdate:       isUpdate,
	})
}

// reject logs the outcome and writes a bare ingest error body.
// Storage detail goes to the log only; the client sees the message as-is
// for 4xx and a generic "Database error" for 5xx.
func (h *IngestHandler) reject(w http.ResponseWriter, rec requestRecord, status int, errMsg string) {
	h.logRequest(rec, status, errMsg)

	clientMsg := errMsg
	if status == http.StatusInternalServerError {
		clientMsg = "Database error"
	}
	writeIngestError(w, status, models.IngestErrorResponse{Error: clientMsg})
}

// logRequest records one ingest outcome in request_log.
// Failures here are logged and swallowed; they never fail the request.
func (h *IngestHandler) logRequest(rec requestRecord, status int, errMsg string) {
	var errVal interface{}
	if errMsg != "" {
		errVal = errMsg
	}

	_, err := h.db.Exec(`
		INSERT INTO request_log
			(id, timestamp, ip_address, device_info, app_version, http_method,
			 raw_body, error_message, status_code, user_id, yarn_count,
			 has_payload_hash, has_salted_hash, has_idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, uuid.NewString(), models.FormatTime(time.Now()),
		rec.ip, rec.deviceInfo, rec.appVersion, rec.method,
		rec.rawBody, errVal, status, rec.userID, rec.yarnCount,
		boolToInt(rec.hasPayloadHash), boolToInt(rec.hasSaltedHash), boolToInt(rec.hasIdempotencyKey))

	if err != nil {
		slog.Error("failed to log request", "error", err)
	}
}

func writeIngestError(w http.ResponseWriter, status int, body models.IngestErrorResponse) {
	middleware.JSONResponse(w, status, body)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
