// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides voter identity and admin key utilities.

# Voter Tokens

Voter tokens are random 24-byte (192-bit) secrets:

	token, err := auth.GenerateVoterToken()

Tokens are URL-safe base64 encoded and sent back on every request in the
X-Voter-Token header.

# Identities

The identity a vote is recorded under is an HMAC of the token:

	identity, err := auth.IdentityFromToken(token, salt)

The same token and salt always give the same identity, so a voter keeps
one vote per period across sessions. The token itself is never stored.

# Admin Keys

Admin keys use HMAC-SHA256 to create deterministic, verifiable keys:

	adminKey := auth.GenerateAdminKey(auth.AdminScope, salt)
	err := auth.ValidateAdminKey(auth.AdminScope, adminKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
it can be validated without being stored anywhere.
*/
package auth
