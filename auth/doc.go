// Copyright (c) 2025 KnitAndCalc.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides payload digests and admin session tokens.

# Payload Digests

The iOS client optionally sends two SHA-256 digests of the raw request
body for integrity checking:

	hash := auth.HashPayload(body)                    // X-Payload-Hash
	salted := auth.HashPayloadSalted(body, salt)      // X-Payload-Hash-Salted

The salted variant appends the server-side PAYLOAD_SALT secret before
hashing, giving a lightweight authenticity check without full request
signing. Compare digests with auth.DigestsEqual (constant time).

# Session Tokens

Admin dashboard logins produce HMAC-signed stateless tokens:

	expires := time.Now().Add(auth.SessionLifetime)
	token := auth.GenerateSessionToken(username, salt, expires)
	username, err := auth.ValidateSessionToken(token, salt)

The token carries username and expiry in its claims, so no server-side
session store is needed. Validation errors are ErrInvalidSessionToken or
ErrSessionExpired.

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
