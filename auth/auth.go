// Copyright (c) 2025 KnitAndCalc.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidSessionToken = errors.New("invalid session token")
	ErrSessionExpired      = errors.New("session expired")
)

// SessionLifetime is how long an admin login stays valid.
const SessionLifetime = 12 * time.Hour

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashPayload computes the hex SHA-256 digest of the raw request body.
// This is the value the client sends in X-Payload-Hash.
func HashPayload(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// HashPayloadSalted computes the hex SHA-256 digest of the raw body with
// the server-side secret appended, matching X-Payload-Hash-Salted.
func HashPayloadSalted(body []byte, salt string) string {
	h := sha256.New()
	h.Write(body)
	h.Write([]byte(salt))
	return hex.EncodeToString(h.Sum(nil))
}

// DigestsEqual compares two hex digests in constant time.
func DigestsEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

// GenerateSessionToken creates an HMAC-signed admin session token.
// The token carries the username and expiry, so it validates statelessly.
func GenerateSessionToken(username, salt string, expiresAt time.Time) string {
	claims := username + "|" + strconv.FormatInt(expiresAt.Unix(), 10)
	sig := signClaims(claims, salt)
	return base64.RawURLEncoding.EncodeToString([]byte(claims)) + "." + sig
}

// ValidateSessionToken checks signature and expiry, returning the username.
func ValidateSessionToken(token, salt string) (string, error) {
	claimsPart, sig, ok := strings.Cut(token, ".")
	if !ok {
		return "", ErrInvalidSessionToken
	}

	claimsBytes, err := base64.RawURLEncoding.DecodeString(claimsPart)
	if err != nil {
		return "", ErrInvalidSessionToken
	}
	claims := string(claimsBytes)

	if !hmac.Equal([]byte(sig), []byte(signClaims(claims, salt))) {
		return "", ErrInvalidSessionToken
	}

	// Expiry is the last segment; usernames may contain the separator.
	sep := strings.LastIndex(claims, "|")
	if sep < 0 {
		return "", ErrInvalidSessionToken
	}
	username, expiryStr := claims[:sep], claims[sep+1:]

	expiry, err := strconv.ParseInt(expiryStr, 10, 64)
	if err != nil {
		return "", ErrInvalidSessionToken
	}
	if time.Now().Unix() > expiry {
		return "", ErrSessionExpired
	}

	return username, nil
}

// CredentialsMatch compares submitted admin credentials in constant time.
func CredentialsMatch(username, password, wantUsername, wantPassword string) bool {
	// Compare digests so length differences don't leak through hmac.Equal.
	userOK := hmac.Equal(digest(username), digest(wantUsername))
	passOK := hmac.Equal(digest(password), digest(wantPassword))
	return userOK && passOK
}

func signClaims(claims, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(claims))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func digest(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return sum[:]
}
