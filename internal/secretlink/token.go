// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

// Package secretlink implements signed share-link tokens. A token binds
// a link ID and a permission level to an expiry time, authenticated
// with a keyed BLAKE2b MAC. Presenting a valid token gives an identity
// the link need that the SecretLinks generator requires.
package secretlink

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
	"golang.org/x/crypto/blake2b"
)

// Level is the permission a share link grants on its record.
type Level string

// Link permission levels, weakest to strongest. A stronger level covers
// the weaker ones.
const (
	LevelView    Level = "view"
	LevelPreview Level = "preview"
	LevelEdit    Level = "edit"
)

var levelRank = map[Level]int{
	LevelView:    1,
	LevelPreview: 2,
	LevelEdit:    3,
}

// Valid reports whether the level is one of the known values.
func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// Covers reports whether a link with this level satisfies the required
// level.
func (l Level) Covers(required Level) bool {
	return levelRank[l] >= levelRank[required] && required.Valid()
}

// minKeyLen guards against accidentally configuring a trivial key.
const minKeyLen = 16

// Claims are the verified contents of a token.
type Claims struct {
	LinkID     string
	Permission Level
	ExpiresAt  time.Time
}

// Signer signs and verifies link tokens with a single symmetric key.
// Immutable after construction, safe for concurrent use.
type Signer struct {
	key []byte
}

// NewSigner creates a Signer. The key must be at least 16 bytes and at
// most 64 bytes (the BLAKE2b key limit).
func NewSigner(key []byte) (*Signer, error) {
	if len(key) < minKeyLen || len(key) > blake2b.Size {
		return nil, oops.In("secretlink").
			Code("INVALID_CONFIG").
			Errorf("link signing key must be between %d and %d bytes, got %d",
				minKeyLen, blake2b.Size, len(key))
	}
	return &Signer{key: append([]byte(nil), key...)}, nil
}

// Sign produces a token for the given link.
// Token format: uv1.<linkID>.<level>.<expiresUnix>.<mac>, with linkID
// and mac base64url-encoded.
func (s *Signer) Sign(linkID string, level Level, expiresAt time.Time) (string, error) {
	if linkID == "" {
		return "", oops.In("secretlink").
			Code("INVALID_CONFIG").
			Errorf("link ID cannot be empty")
	}
	if !level.Valid() {
		return "", oops.In("secretlink").
			Code("INVALID_CONFIG").
			Errorf("unknown permission level %q", level)
	}

	payload := s.payload(linkID, level, expiresAt.Unix())
	mac, err := s.mac(payload)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("uv1.%s.%s.%d.%s",
		base64.RawURLEncoding.EncodeToString([]byte(linkID)),
		level,
		expiresAt.Unix(),
		base64.RawURLEncoding.EncodeToString(mac),
	), nil
}

// Verify checks a token's signature and expiry against the given time.
// Returns the claims on success.
func (s *Signer) Verify(token string, now time.Time) (*Claims, error) {
	malformed := func(reason string) error {
		return oops.In("secretlink").
			Code("LINK_MALFORMED").
			Errorf("malformed link token: %s", reason)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 5 || parts[0] != "uv1" {
		return nil, malformed("expected 5 dot-separated fields with uv1 prefix")
	}

	rawID, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil || len(rawID) == 0 {
		return nil, malformed("bad link ID encoding")
	}
	level := Level(parts[2])
	if !level.Valid() {
		return nil, malformed("unknown permission level")
	}
	expiresUnix, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return nil, malformed("bad expiry")
	}
	gotMAC, err := base64.RawURLEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, malformed("bad signature encoding")
	}

	wantMAC, err := s.mac(s.payload(string(rawID), level, expiresUnix))
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(gotMAC, wantMAC) != 1 {
		return nil, oops.In("secretlink").
			Code("LINK_BAD_SIGNATURE").
			Errorf("link token signature mismatch")
	}

	expiresAt := time.Unix(expiresUnix, 0)
	if now.After(expiresAt) {
		return nil, oops.In("secretlink").
			Code("LINK_EXPIRED").
			With("expired_at", expiresAt).
			Errorf("link token expired")
	}

	return &Claims{
		LinkID:     string(rawID),
		Permission: level,
		ExpiresAt:  expiresAt,
	}, nil
}

// payload is the byte string covered by the MAC.
func (s *Signer) payload(linkID string, level Level, expiresUnix int64) []byte {
	return []byte(fmt.Sprintf("uv1\x00%s\x00%s\x00%d", linkID, level, expiresUnix))
}

// mac computes the keyed BLAKE2b-256 MAC of the payload.
func (s *Signer) mac(payload []byte) ([]byte, error) {
	h, err := blake2b.New256(s.key)
	if err != nil {
		return nil, oops.In("secretlink").Wrapf(err, "initialize MAC")
	}
	h.Write(payload)
	return h.Sum(nil), nil
}
