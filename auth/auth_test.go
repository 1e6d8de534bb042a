// Copyright (c) 2025 KnitAndCalc.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"testing"
	"time"
)

func TestGenerateID(t *testing.T) {
	tests := []struct {
		name    string
		byteLen int
		wantLen int
	}{
		{"16 bytes", 16, 32},
		{"12 bytes", 12, 24},
		{"1 byte", 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := GenerateID(tt.byteLen)
			if err != nil {
				t.Fatalf("GenerateID failed: %v", err)
			}
			if len(id) != tt.wantLen {
				t.Errorf("Expected length %d, got %d", tt.wantLen, len(id))
			}
		})
	}

	// IDs should be unique
	a, _ := GenerateID(16)
	b, _ := GenerateID(16)
	if a == b {
		t.Error("Expected two generated IDs to differ")
	}
}

func TestHashPayload(t *testing.T) {
	body := []byte(`{"userId":"abc","timestamp":"t","yarnStash":[]}`)

	// Known SHA-256 behavior: deterministic, 64 hex chars
	h1 := HashPayload(body)
	h2 := HashPayload(body)
	if h1 != h2 {
		t.Error("Expected deterministic digest")
	}
	if len(h1) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(h1))
	}

	// Any byte change must change the digest
	h3 := HashPayload([]byte(`{"userId":"abd","timestamp":"t","yarnStash":[]}`))
	if h1 == h3 {
		t.Error("Expected different bodies to produce different digests")
	}
}

func TestHashPayloadSalted(t *testing.T) {
	body := []byte("payload")

	unsalted := HashPayload(body)
	salted := HashPayloadSalted(body, "secret")
	if unsalted == salted {
		t.Error("Expected salted digest to differ from unsalted")
	}

	// Salted digest equals the plain digest of body+salt
	if salted != HashPayload([]byte("payloadsecret")) {
		t.Error("Expected salted digest to be sha256(body || salt)")
	}

	// Different salts must diverge
	if HashPayloadSalted(body, "a") == HashPayloadSalted(body, "b") {
		t.Error("Expected different salts to produce different digests")
	}
}

func TestDigestsEqual(t *testing.T) {
	if !DigestsEqual("abc", "abc") {
		t.Error("Expected equal digests to match")
	}
	if DigestsEqual("abc", "abd") {
		t.Error("Expected different digests not to match")
	}
	if DigestsEqual("abc", "abcd") {
		t.Error("Expected different-length digests not to match")
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	token := GenerateSessionToken("morten", "salt", time.Now().Add(time.Hour))

	username, err := ValidateSessionToken(token, "salt")
	if err != nil {
		t.Fatalf("ValidateSessionToken failed: %v", err)
	}
	if username != "morten" {
		t.Errorf("Expected username 'morten', got '%s'", username)
	}
}

func TestSessionTokenRejections(t *testing.T) {
	valid := GenerateSessionToken("morten", "salt", time.Now().Add(time.Hour))

	tests := []struct {
		name    string
		token   string
		salt    string
		wantErr error
	}{
		{"wrong salt", valid, "other-salt", ErrInvalidSessionToken},
		{"garbage", "not-a-token", "salt", ErrInvalidSessionToken},
		{"empty", "", "salt", ErrInvalidSessionToken},
		{"tampered signature", valid[:len(valid)-2] + "xx", "salt", ErrInvalidSessionToken},
		{
			"expired",
			GenerateSessionToken("morten", "salt", time.Now().Add(-time.Minute)),
			"salt",
			ErrSessionExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateSessionToken(tt.token, tt.salt)
			if err != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSessionTokenUsernameWithSeparator(t *testing.T) {
	// A username containing the claims separator must still validate;
	// the expiry is always the last segment.
	token := GenerateSessionToken("a|b", "salt", time.Now().Add(time.Hour))
	username, err := ValidateSessionToken(token, "salt")
	if err != nil {
		t.Fatalf("ValidateSessionToken failed: %v", err)
	}
	if username != "a|b" {
		t.Errorf("Expected username 'a|b', got '%s'", username)
	}
}

func TestCredentialsMatch(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		want     bool
	}{
		{"correct", "admin", "secret", true},
		{"wrong password", "admin", "guess", false},
		{"wrong username", "root", "secret", false},
		{"both wrong", "root", "guess", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CredentialsMatch(tt.username, tt.password, "admin", "secret")
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
