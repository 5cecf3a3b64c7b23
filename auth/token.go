// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

// DefaultTokenTTL is long enough to answer the question screen and short
// enough that harvesting tokens ahead of time is impractical.
const DefaultTokenTTL = 2 * time.Minute

// MinSecretLength is the shortest signing secret NewTokenIssuer accepts.
const MinSecretLength = 16

var (
	ErrTokenExpired      = errors.New("vote token expired")
	ErrTokenBadSignature = errors.New("vote token signature invalid")
	ErrTokenMalformed    = errors.New("vote token malformed")
	ErrWeakSecret        = errors.New("vote token secret too short")
)

// VoteClaims binds a vote submission to the profile declared before it.
// Age stays a string so it can be compared exactly as issued.
type VoteClaims struct {
	SessionID string `json:"sessionId"`
	Gender    string `json:"gender"`
	Age       string `json:"age"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies vote capability tokens with HMAC-SHA256.
// It holds no per-token state.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
	parser *jwt.Parser
}

func NewTokenIssuer(secret []byte, ttl time.Duration, clock clockwork.Clock) (*TokenIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &TokenIssuer{
		secret: key,
		ttl:    ttl,
		clock:  clock,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(clock.Now),
		),
	}, nil
}

// TTL returns the lifetime given to every issued token
func (ti *TokenIssuer) TTL() time.Duration {
	return ti.ttl
}

// Issue signs a token carrying exactly the given session and profile.
// Returns the compact token and its expiry.
func (ti *TokenIssuer) Issue(sessionID, gender, age string) (string, time.Time, error) {
	now := ti.clock.Now()
	expiresAt := now.Add(ti.ttl)

	claims := VoteClaims{
		SessionID: sessionID,
		Gender:    gender,
		Age:       age,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign vote token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, expiry, and claim shape, in that order.
// The returned error is always one of ErrTokenBadSignature, ErrTokenExpired
// or ErrTokenMalformed.
func (ti *TokenIssuer) Verify(tokenString string) (VoteClaims, error) {
	if tokenString == "" {
		return VoteClaims{}, ErrTokenMalformed
	}

	var claims VoteClaims
	_, err := ti.parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	})
	if err != nil {
		return VoteClaims{}, classifyJWTError(err)
	}

	if claims.SessionID == "" || claims.Gender == "" || claims.Age == "" {
		return VoteClaims{}, ErrTokenMalformed
	}
	return claims, nil
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		// malformed, unverifiable, missing exp, claim type errors
		return ErrTokenMalformed
	}
}
