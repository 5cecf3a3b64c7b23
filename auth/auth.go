// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

var ErrInvalidAPIKey = errors.New("invalid api key")

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ValidateAPIKey compares the presented key with the configured one in
// constant time. An empty configured key rejects everything.
func ValidateAPIKey(presented, expected string) error {
	if expected == "" || presented == "" {
		return ErrInvalidAPIKey
	}
	// Hash both sides so the comparison does not leak the key length
	p := sha256.Sum256([]byte(presented))
	e := sha256.Sum256([]byte(expected))
	if !hmac.Equal(p[:], e[:]) {
		return ErrInvalidAPIKey
	}
	return nil
}
