// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides vote capability tokens and small credential helpers.

# Vote Tokens

A vote token is an HS256 JWT binding a session to the profile the client
declared before seeing the question:

	issuer, err := auth.NewTokenIssuer(secret, 2*time.Minute, clock)
	token, expiresAt, err := issuer.Issue(sessionID, "male", "30")
	claims, err := issuer.Verify(token)

Verify reports exactly one of ErrTokenBadSignature, ErrTokenExpired or
ErrTokenMalformed. The signature is checked before expiry, so an expired
forgery is reported as a bad signature. Only HS256 is accepted.

Tokens are not single-use. A replayed token still runs into the
once-per-session and once-per-device constraints of the vote store.

# API Keys

Administrative endpoints compare the X-API-Key header in constant time:

	err := auth.ValidateAPIKey(r.Header.Get("X-API-Key"), cfg.AdminAPIKey)

An empty configured key disables the endpoint.

# ID Generation

Random hex IDs for stored records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
