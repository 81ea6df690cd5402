// Package token implements issuance, validation and rate-limited consumption
// of edit tokens.
//
// Tokens are opaque bearer capabilities: 8 bytes, the first fixed to a 0xff
// sentinel so token keys never collide with other entries sharing the store's
// keyspace, the remaining 7 cryptographically random. The store enforces one
// token per owning uid and one uid per token, and gates every edit through a
// per-token cooldown. All multi-key checks and writes happen inside a single
// bbolt read-write transaction, so concurrent conflicting calls are
// serialized by the store itself.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// tokenLen is the raw byte length of a token; its text form is twice that
// in lowercase hex.
const tokenLen = 8

// sentinel is the fixed first byte of every token.
const sentinel = 0xff

// Token is an opaque 8-byte edit credential. The zero value is not a valid
// token; obtain one via New, Parse or Store.Issue.
type Token [tokenLen]byte

// New generates a fresh random token with the sentinel first byte.
func New() (Token, error) {
	var t Token
	if _, err := rand.Read(t[:]); err != nil {
		return Token{}, fmt.Errorf("failed to generate random token: %w", err)
	}
	t[0] = sentinel
	return t, nil
}

// Parse decodes the 16-character lowercase hex form of a token.
func Parse(s string) (Token, error) {
	if len(s) != tokenLen*2 {
		return Token{}, fmt.Errorf("invalid token: want %d hex characters, got %d", tokenLen*2, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Token{}, fmt.Errorf("invalid token: %w", err)
	}
	return fromBytes(raw)
}

// String returns the 16-character lowercase hex form.
func (t Token) String() string {
	return hex.EncodeToString(t[:])
}

// Bytes returns the raw 8-byte form used as the store key.
func (t Token) Bytes() []byte {
	return t[:]
}

func fromBytes(raw []byte) (Token, error) {
	if len(raw) != tokenLen || raw[0] != sentinel {
		return Token{}, errors.New("invalid token format")
	}
	var t Token
	copy(t[:], raw)
	return t, nil
}

// ErrUnknownToken is returned by Consume for a token the store has never
// issued or registered.
var ErrUnknownToken = errors.New("token does not exist")

// AlreadyIssuedError is returned by Issue and Register when the uid already
// owns a token. Existing carries that token so callers can surface it.
type AlreadyIssuedError struct {
	Existing Token
}

func (e *AlreadyIssuedError) Error() string {
	return fmt.Sprintf("you already have a token: %s", e.Existing)
}

// AlreadyRegisteredError is returned by Issue and Register when the token
// itself is already bound to an owner.
type AlreadyRegisteredError struct {
	UID string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("this token is already registered to user %q", e.UID)
}

// CooldownError is returned by Consume when the minimum interval since the
// token's last use has not elapsed.
type CooldownError struct {
	Interval  time.Duration
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown period is %s, you have to wait %s more", e.Interval, e.Remaining)
}
