// Copyright (c) 2025 Daniel Kuo.
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
	"strings"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrInvalidToken    = errors.New("invalid token format")
)

// AdminScope is the scope the deployment's admin key is derived for
const AdminScope = "tally-admin"

const voterTokenBytes = 24

// GenerateAdminKey creates an HMAC-based admin key for a scope
// This is deterministic and verifiable
func GenerateAdminKey(scope, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(scope))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateAdminKey checks if the provided admin key is valid for the scope
func ValidateAdminKey(scope, adminKey, salt string) error {
	expected := GenerateAdminKey(scope, salt)
	if !hmac.Equal([]byte(adminKey), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// GenerateVoterToken creates a random secure token for a voter.
// The token is the voter's credential; only its hash is ever stored.
func GenerateVoterToken() (string, error) {
	b := make([]byte, voterTokenBytes) // 192 bits of entropy
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate voter token: %w", err)
	}
	// URL-safe base64 without padding
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidateVoterToken checks that token looks like one GenerateVoterToken made
func ValidateVoterToken(token string) error {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(b) != voterTokenBytes {
		return ErrInvalidToken
	}
	return nil
}

// IdentityFromToken derives the stable voter identity for a token.
// Includes salt so identities cannot be mapped back to tokens.
func IdentityFromToken(token, salt string) (string, error) {
	if err := ValidateVoterToken(token); err != nil {
		return "", err
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(token))
	sum := h.Sum(nil)
	// 128 bits is plenty to keep identities distinct
	return hex.EncodeToString(sum[:16]), nil
}
