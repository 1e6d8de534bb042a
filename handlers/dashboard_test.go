// Copyright (c) 2025 KnitAndCalc.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/knitandcalc/stash-server/cliparse"
	"github.com/knitandcalc/stash-server/models"
	"github.com/knitandcalc/stash-server/testutil"
)

func getDashboard(h *DashboardHandler, cfg cliparse.Config, query string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("GET", "/admin/dashboard"+query, nil, map[string]string{
		"Authorization": "Bearer " + testutil.AdminToken(cfg),
	})
	w := httptest.NewRecorder()
	h.GetDashboard(w, req)
	return w
}

// ts formats a deterministic timestamp n minutes past a fixed base.
func ts(minutes int) string {
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	return models.FormatTime(base.Add(time.Duration(minutes) * time.Minute))
}

func TestLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := NewDashboardHandler(db, cfg)

	t.Run("valid credentials", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/admin/login",
			models.LoginRequest{Username: "admin", Password: "test-password"}, nil)
		w := httptest.NewRecorder()
		h.Login(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.LoginResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Token == "" {
			t.Error("Expected a session token")
		}
		if !resp.ExpiresAt.After(time.Now().Add(11 * time.Hour)) {
			t.Errorf("Expected ~12h expiry, got %v", resp.ExpiresAt)
		}

		// The issued token must authorize the dashboard
		dashReq := testutil.MakeRequest("GET", "/admin/dashboard", nil, map[string]string{
			"Authorization": "Bearer " + resp.Token,
		})
		dw := httptest.NewRecorder()
		h.GetDashboard(dw, dashReq)
		testutil.AssertStatus(t, dw, http.StatusOK)
	})

	t.Run("wrong credentials", func(t *testing.T) {
		tests := []models.LoginRequest{
			{Username: "admin", Password: "wrong"},
			{Username: "root", Password: "test-password"},
			{},
		}
		for _, creds := range tests {
			req := testutil.MakeRequest("POST", "/admin/login", creds, nil)
			w := httptest.NewRecorder()
			h.Login(w, req)
			testutil.AssertStatus(t, w, http.StatusUnauthorized)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/admin/login", nil, nil)
		w := httptest.NewRecorder()
		h.Login(w, req)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})
}

func TestDashboardUnauthorized(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := NewDashboardHandler(db, cfg)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-token"},
		{"wrong salt", "Bearer " + testutil.AdminToken(cliparse.Config{
			AdminUsername: cfg.AdminUsername,
			SessionSalt:   "other-salt",
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("GET", "/admin/dashboard", nil, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.GetDashboard(w, req)
			testutil.AssertStatus(t, w, http.StatusUnauthorized)
		})
	}
}

func TestDashboardEmpty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := NewDashboardHandler(db, cfg)

	w := getDashboard(h, cfg, "")
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.DashboardResponse
	testutil.AssertJSON(t, w, &resp)

	if resp.Stats.TotalSubmissions != 0 || resp.Stats.UniqueUsers != 0 {
		t.Errorf("Expected zero stats, got %+v", resp.Stats)
	}
	// Empty collections serialize as [], never null
	if resp.Users == nil || resp.RecentRequests == nil {
		t.Error("Expected empty slices, not null")
	}
	if resp.UserDetail != nil {
		t.Error("Expected no user detail without ?expand")
	}
}

func TestDashboardFleetStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := NewDashboardHandler(db, cfg)

	// Each user's latest stash: 2 skeins × 50m + 1 skein × 100m = 200m
	latest := models.StashPayload{
		Timestamp: "t",
		YarnStash: []models.YarnItem{
			testutil.StashItem(2, 50, 100),
			testutil.StashItem(1, 100, 50),
		},
	}
	// Superseded history rows carry a much larger stash that must not count
	stale := models.StashPayload{
		Timestamp: "t",
		YarnStash: []models.YarnItem{testutil.StashItem(100, 100, 100)},
	}

	for i, userID := range []string{"user-a", "user-b", "user-c"} {
		testutil.SeedPayloadSubmission(t, db, userID, stale, ts(i))
		testutil.SeedPayloadSubmission(t, db, userID, latest, ts(10+i))
	}

	w := getDashboard(h, cfg, "")
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.DashboardResponse
	testutil.AssertJSON(t, w, &resp)

	if resp.Stats.TotalSubmissions != 6 {
		t.Errorf("Expected 6 submissions, got %d", resp.Stats.TotalSubmissions)
	}
	if resp.Stats.UniqueUsers != 3 {
		t.Errorf("Expected 3 users, got %d", resp.Stats.UniqueUsers)
	}
	if resp.Stats.TotalYarns != 6 {
		t.Errorf("Expected 6 yarns, got %d", resp.Stats.TotalYarns)
	}
	if resp.Stats.TotalMeters != 600 {
		t.Errorf("Expected 600 meters from latest payloads only, got %.1f", resp.Stats.TotalMeters)
	}
	if resp.Stats.TotalGrams != 750 {
		t.Errorf("Expected 750 grams, got %.1f", resp.Stats.TotalGrams)
	}
}

func TestDashboardUserSummaries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := NewDashboardHandler(db, cfg)

	payload := models.StashPayload{
		Timestamp: "t",
		YarnStash: []models.YarnItem{testutil.StashItem(2, 50, 100)},
	}

	testutil.SeedPayloadSubmission(t, db, "aaaabbbbccccdddd", payload, ts(1))
	testutil.SeedPayloadSubmission(t, db, "aaaabbbbccccdddd", payload, ts(5))
	testutil.SeedPayloadSubmission(t, db, "u2", payload, ts(3))

	w := getDashboard(h, cfg, "")
	var resp models.DashboardResponse
	testutil.AssertJSON(t, w, &resp)

	if len(resp.Users) != 2 {
		t.Fatalf("Expected 2 user summaries, got %d", len(resp.Users))
	}

	// Newest first
	first := resp.Users[0]
	if first.UserID != "aaaabbbbccccdddd" {
		t.Errorf("Expected most recently active user first, got '%s'", first.UserID)
	}
	if first.UserIDShort != "aaaabbbb..." {
		t.Errorf("Unexpected short id: '%s'", first.UserIDShort)
	}
	if first.SubmissionCount != 2 {
		t.Errorf("Expected 2 submissions, got %d", first.SubmissionCount)
	}
	if first.Meters != 100 || first.Grams != 200 {
		t.Errorf("Unexpected totals: %.1fm / %.1fg", first.Meters, first.Grams)
	}
	if first.LastReceivedAgo == "" {
		t.Error("Expected a humanized last-received value")
	}

	if second := resp.Users[1]; second.UserID != "u2" || second.UserIDShort != "u2" {
		t.Errorf("Unexpected second summary: %+v", second)
	}
}

func TestDashboardUsageAverages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := NewDashboardHandler(db, cfg)

	// Counters average over every row carrying them, including a user's
	// superseded history rows.
	testutil.SeedPayloadSubmission(t, db, "u1", models.StashPayload{
		Timestamp:       "t",
		UsageStatistics: map[string]float64{"appLaunches": 10},
	}, ts(1))
	testutil.SeedPayloadSubmission(t, db, "u1", models.StashPayload{
		Timestamp:       "t",
		UsageStatistics: map[string]float64{"appLaunches": 30, "calculationsRun": 5},
	}, ts(2))
	// A row with no usageStatistics is excluded from the mean
	testutil.SeedPayloadSubmission(t, db, "u2", models.StashPayload{Timestamp: "t"}, ts(3))

	w := getDashboard(h, cfg, "")
	var resp models.DashboardResponse
	testutil.AssertJSON(t, w, &resp)

	if got := resp.UsageAverages["appLaunches"]; got != 20 {
		t.Errorf("Expected appLaunches mean 20, got %.1f", got)
	}
	if got := resp.UsageAverages["calculationsRun"]; got != 5 {
		t.Errorf("Expected calculationsRun mean 5, got %.1f", got)
	}
}

func TestDashboardRecentRequests(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := NewDashboardHandler(db, cfg)

	for i := 0; i < 7; i++ {
		testutil.SeedRequestLog(t, db, models.RequestLogEntry{
			Timestamp:  ts(i),
			IPAddress:  "203.0.113.7",
			HTTPMethod: "POST",
			StatusCode: http.StatusOK,
		})
	}

	w := getDashboard(h, cfg, "")
	var resp models.DashboardResponse
	testutil.AssertJSON(t, w, &resp)

	if len(resp.RecentRequests) != recentRequestLimit {
		t.Fatalf("Expected %d recent requests, got %d", recentRequestLimit, len(resp.RecentRequests))
	}
	// Newest first
	if resp.RecentRequests[0].Timestamp != ts(6) {
		t.Errorf("Expected newest entry first, got %s", resp.RecentRequests[0].Timestamp)
	}
	if resp.RecentRequests[4].Timestamp != ts(2) {
		t.Errorf("Expected feed cut at the five newest, got %s", resp.RecentRequests[4].Timestamp)
	}
}

func TestDashboardExpand(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	h := NewDashboardHandler(db, cfg)

	item := testutil.StashItem(3, 50, 100)
	item.Brand = "Drops"
	testutil.SeedPayloadSubmission(t, db, "u1", models.StashPayload{
		Timestamp: "t",
		YarnStash: []models.YarnItem{testutil.StashItem(1, 10, 20)},
	}, ts(1))
	testutil.SeedPayloadSubmission(t, db, "u1", models.StashPayload{
		Timestamp:       "t",
		YarnStash:       []models.YarnItem{item},
		UsageStatistics: map[string]float64{"appLaunches": 7},
	}, ts(2))

	t.Run("known user", func(t *testing.T) {
		w := getDashboard(h, cfg, "?expand=u1")
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.DashboardResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.UserDetail == nil {
			t.Fatal("Expected expanded user detail")
		}

		detail := resp.UserDetail
		if detail.UserID != "u1" {
			t.Errorf("Unexpected user id: '%s'", detail.UserID)
		}
		// Items come from the latest payload only
		if len(detail.Items) != 1 {
			t.Fatalf("Expected 1 item, got %d", len(detail.Items))
		}
		if detail.Items[0].Brand != "Drops" {
			t.Errorf("Expected latest payload's item, got '%s'", detail.Items[0].Brand)
		}
		if detail.Items[0].TotalLength != 150 || detail.Items[0].TotalWeight != 300 {
			t.Errorf("Unexpected derived totals: %+v", detail.Items[0])
		}
		if detail.UsageStatistics["appLaunches"] != 7 {
			t.Errorf("Expected latest usage statistics, got %v", detail.UsageStatistics)
		}

		// Full history, newest first
		if len(detail.History) != 2 {
			t.Fatalf("Expected 2 history entries, got %d", len(detail.History))
		}
		if detail.History[0].ReceivedAt != ts(2) || detail.History[1].ReceivedAt != ts(1) {
			t.Errorf("Expected history newest first, got %+v", detail.History)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		w := getDashboard(h, cfg, "?expand=nobody")
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})
}

func TestCollectUserDetailUnknown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := NewDashboardHandler(db, testutil.GetTestConfig())

	if _, err := h.collectUserDetail("nobody"); err != sql.ErrNoRows {
		t.Errorf("Expected sql.ErrNoRows, got %v", err)
	}
}
