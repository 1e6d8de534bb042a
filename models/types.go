package models

import "time"

// TimeLayout is RFC3339 UTC with a fixed-width nanosecond fraction.
// Stored timestamps must compare correctly as text (MAX(), ORDER BY) on
// both sqlite and postgres, so the width never varies.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders a timestamp in the stored text form.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads a stored timestamp. Accepts any RFC3339 fraction width.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Wire payload types

// YarnItem is one entry in a submitted stash. Numeric fields are pointers:
// an absent field contributes zero to derived totals instead of erroring.
type YarnItem struct {
	Brand          string   `json:"brand,omitempty"`
	Type           string   `json:"type,omitempty"`
	Color          string   `json:"color,omitempty"`
	ColorNumber    string   `json:"colorNumber,omitempty"`
	LotNumber      string   `json:"lotNumber,omitempty"`
	NumberOfSkeins *float64 `json:"numberOfSkeins,omitempty"`
	LengthPerSkein *float64 `json:"lengthPerSkein,omitempty"`
	WeightPerSkein *float64 `json:"weightPerSkein,omitempty"`
	Gauge          string   `json:"gauge,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}

// StashEnvelope is the raw decoded request body. Required fields are
// pointers so a missing key can be told apart from a zero value.
type StashEnvelope struct {
	UserID          *string            `json:"userId"`
	Timestamp       *string            `json:"timestamp"`
	YarnStash       *[]YarnItem        `json:"yarnStash"`
	UsageStatistics map[string]float64 `json:"usageStatistics"`
}

// MissingFields lists which required fields are absent, in wire order.
func (e *StashEnvelope) MissingFields() []string {
	var missing []string
	if e.UserID == nil {
		missing = append(missing, "userId")
	}
	if e.Timestamp == nil {
		missing = append(missing, "timestamp")
	}
	if e.YarnStash == nil {
		missing = append(missing, "yarnStash")
	}
	return missing
}

// StashPayload is a validated submission body.
type StashPayload struct {
	UserID          string             `json:"userId"`
	Timestamp       string             `json:"timestamp"`
	YarnStash       []YarnItem         `json:"yarnStash"`
	UsageStatistics map[string]float64 `json:"usageStatistics,omitempty"`
}

// Stored rows

type Submission struct {
	ID                     string `json:"id"`
	UserID                 string `json:"user_id"`
	IdempotencyKey         string `json:"idempotency_key"`
	PayloadJSON            string `json:"-"`
	TimestampFirstReceived string `json:"timestamp_first_received"`
	TimestampLastReceived  string `json:"timestamp_last_received"`
	TimestampClient        string `json:"timestamp_client"`
	IPAddress              string `json:"ip_address"`
	DeviceInfo             string `json:"device_info"`
	AppVersion             string `json:"app_version"`
	PayloadHash            string `json:"-"`
	PayloadHashSalted      string `json:"-"`
	HashValid              bool   `json:"hash_valid"`
	SaltedHashValid        bool   `json:"salted_hash_valid"`
	YarnCount              int    `json:"yarn_count"`
	ReceiveCount           int    `json:"receive_count"`
}

type RequestLogEntry struct {
	ID                string  `json:"id"`
	Timestamp         string  `json:"timestamp"`
	IPAddress         string  `json:"ip_address"`
	DeviceInfo        string  `json:"device_info"`
	AppVersion        string  `json:"app_version"`
	HTTPMethod        string  `json:"http_method"`
	RawBody           string  `json:"-"` // truncated copy, never exposed
	ErrorMessage      *string `json:"error_message"`
	StatusCode        int     `json:"status_code"`
	UserID            *string `json:"user_id"`
	YarnCount         *int    `json:"yarn_count"`
	HasPayloadHash    bool    `json:"has_payload_hash"`
	HasSaltedHash     bool    `json:"has_salted_hash"`
	HasIdempotencyKey bool    `json:"has_idempotency_key"`
}

// Ingest responses

type IngestResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ReceivedAt     string `json:"received_at"`
	YarnCount      int    `json:"yarn_count"`
	IdempotencyKey string `json:"idempotency_key"`
	ReceiveCount   int    `json:"receive_count"`
	IsUpdate       bool   `json:"is_update"`
}

// IngestErrorResponse matches the body the iOS client already parses.
// Expected/Received are only set for digest mismatches.
type IngestErrorResponse struct {
	Error    string `json:"error"`
	Expected string `json:"expected,omitempty"`
	Received string `json:"received,omitempty"`
}

// Admin types

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type FleetStats struct {
	TotalSubmissions int     `json:"total_submissions"`
	UniqueUsers      int     `json:"unique_users"`
	TotalYarns       int     `json:"total_yarns"`
	TotalMeters      float64 `json:"total_meters"`
	TotalGrams       float64 `json:"total_grams"`
}

type UserSummary struct {
	UserID          string  `json:"user_id"`
	UserIDShort     string  `json:"user_id_short"`
	LastReceived    string  `json:"last_received"`
	LastReceivedAgo string  `json:"last_received_ago"`
	YarnCount       int     `json:"yarn_count"`
	Meters          float64 `json:"meters"`
	Grams           float64 `json:"grams"`
	SubmissionCount int     `json:"submission_count"`
	AppVersion      string  `json:"app_version"`
}

// YarnItemDetail is an expanded item with derived per-item totals.
type YarnItemDetail struct {
	YarnItem
	TotalLength float64 `json:"totalLength"`
	TotalWeight float64 `json:"totalWeight"`
}

type HistoryEntry struct {
	ReceivedAt   string `json:"received_at"`
	YarnCount    int    `json:"yarn_count"`
	AppVersion   string `json:"app_version"`
	ReceiveCount int    `json:"receive_count"`
}

type UserDetail struct {
	UserID          string             `json:"user_id"`
	Items           []YarnItemDetail   `json:"items"`
	UsageStatistics map[string]float64 `json:"usage_statistics,omitempty"`
	History         []HistoryEntry     `json:"history"`
}

type DashboardResponse struct {
	Stats          FleetStats         `json:"stats"`
	RecentRequests []RequestLogEntry  `json:"recent_requests"`
	UsageAverages  map[string]float64 `json:"usage_averages"`
	Users          []UserSummary      `json:"users"`
	UserDetail     *UserDetail        `json:"user_detail,omitempty"`
}

// Error response for admin endpoints

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
