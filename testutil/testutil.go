// Copyright (c) 2025 KnitAndCalc.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/knitandcalc/stash-server/auth"
	"github.com/knitandcalc/stash-server/cliparse"
	"github.com/knitandcalc/stash-server/db"
	"github.com/knitandcalc/stash-server/models"
)

// SetupTestDB creates a fresh sqlite database in a per-test temp dir
// with the full schema.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stash_test.db")
	dbConn, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// sqlite allows one writer; a single pooled conn avoids SQLITE_BUSY.
	dbConn.SetMaxOpenConns(1)

	if err := db.CreateSchema(dbConn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() { dbConn.Close() })
	return dbConn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          8419,
		DatabaseURL:   "test.db",
		DatabaseType:  "sqlite",
		PayloadSalt:   "test-payload-salt",
		SessionSalt:   "test-session-salt",
		AdminUsername: "admin",
		AdminPassword: "test-password",
	}
}

// FloatPtr is a shorthand for optional numeric payload fields.
func FloatPtr(f float64) *float64 {
	return &f
}

// StashItem builds a yarn item with the three numeric fields set.
func StashItem(skeins, length, weight float64) models.YarnItem {
	return models.YarnItem{
		NumberOfSkeins: FloatPtr(skeins),
		LengthPerSkein: FloatPtr(length),
		WeightPerSkein: FloatPtr(weight),
	}
}

// SeedSubmission inserts a submission row directly, bypassing the
// handler. Zero-valued fields get sensible defaults.
func SeedSubmission(t *testing.T, dbConn *sql.DB, sub models.Submission) string {
	t.Helper()

	if sub.ID == "" {
		sub.ID, _ = auth.GenerateID(16)
	}
	now := models.FormatTime(time.Now())
	if sub.TimestampFirstReceived == "" {
		sub.TimestampFirstReceived = now
	}
	if sub.TimestampLastReceived == "" {
		sub.TimestampLastReceived = sub.TimestampFirstReceived
	}
	if sub.TimestampClient == "" {
		sub.TimestampClient = sub.TimestampFirstReceived
	}
	if sub.IdempotencyKey == "" {
		sub.IdempotencyKey, _ = auth.GenerateID(16)
	}
	if sub.PayloadJSON == "" {
		sub.PayloadJSON = "{}"
	}
	if sub.ReceiveCount == 0 {
		sub.ReceiveCount = 1
	}

	_, err := dbConn.Exec(`
		INSERT INTO yarn_stash_submissions
			(id, user_id, idempotency_key, payload_json,
			 timestamp_first_received, timestamp_last_received, timestamp_client,
			 ip_address, device_info, app_version,
			 hash_valid, salted_hash_valid, yarn_count, receive_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, sub.ID, sub.UserID, sub.IdempotencyKey, sub.PayloadJSON,
		sub.TimestampFirstReceived, sub.TimestampLastReceived, sub.TimestampClient,
		sub.IPAddress, sub.DeviceInfo, sub.AppVersion,
		b2i(sub.HashValid), b2i(sub.SaltedHashValid), sub.YarnCount, sub.ReceiveCount)
	if err != nil {
		t.Fatalf("Failed to seed submission: %v", err)
	}

	return sub.ID
}

// SeedPayloadSubmission marshals the payload, derives yarn_count from
// it, and stores it as a submission for the given user.
func SeedPayloadSubmission(t *testing.T, dbConn *sql.DB, userID string, payload models.StashPayload, lastReceived string) string {
	t.Helper()

	payload.UserID = userID
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}

	return SeedSubmission(t, dbConn, models.Submission{
		UserID:                userID,
		PayloadJSON:           string(raw),
		TimestampLastReceived: lastReceived,
		YarnCount:             len(payload.YarnStash),
	})
}

// SeedRequestLog inserts a request_log row directly.
func SeedRequestLog(t *testing.T, dbConn *sql.DB, entry models.RequestLogEntry) string {
	t.Helper()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp == "" {
		entry.Timestamp = models.FormatTime(time.Now())
	}

	_, err := dbConn.Exec(`
		INSERT INTO request_log
			(id, timestamp, ip_address, device_info, app_version, http_method,
			 raw_body, error_message, status_code, user_id, yarn_count,
			 has_payload_hash, has_salted_hash, has_idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, entry.ID, entry.Timestamp, entry.IPAddress, entry.DeviceInfo,
		entry.AppVersion, entry.HTTPMethod, entry.RawBody, entry.ErrorMessage,
		entry.StatusCode, entry.UserID, entry.YarnCount,
		b2i(entry.HasPayloadHash), b2i(entry.HasSaltedHash), b2i(entry.HasIdempotencyKey))
	if err != nil {
		t.Fatalf("Failed to seed request log entry: %v", err)
	}

	return entry.ID
}

// AdminToken returns a valid session token for the test config.
func AdminToken(cfg cliparse.Config) string {
	return auth.GenerateSessionToken(cfg.AdminUsername, cfg.SessionSalt, time.Now().Add(time.Hour))
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
