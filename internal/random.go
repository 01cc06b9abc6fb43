package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// SessionToken is a 32-byte opaque session identifier. Its string form is
// base64url without padding, 43 characters.
type SessionToken [32]byte

// NewSessionToken draws a token from crypto/rand.
func NewSessionToken() (SessionToken, error) {
	var tok SessionToken
	_, err := rand.Read(tok[:])
	return tok, err
}

// Bytes returns the raw token bytes.
func (t SessionToken) Bytes() []byte {
	return t[:]
}

// String renders the token in compact base64url form.
func (t SessionToken) String() string {
	return base64.RawURLEncoding.EncodeToString(t[:])
}

// ParseSessionToken decodes a compact token string. Rejects anything that is
// not exactly 32 decoded bytes, so malformed caller input never reaches the
// session store as a key.
func ParseSessionToken(token string) (SessionToken, error) {
	var tok SessionToken

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return tok, err
	}
	if len(raw) != len(tok) {
		return tok, errors.New("invalid session token size")
	}

	copy(tok[:], raw)
	return tok, nil
}
