package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash"
)

// Scope tags a cursor with the listing it was issued for so a token from one listing
// cannot be replayed against another.
type Scope byte

const (
	ScopeDiary     Scope = 'd'
	ScopeBookmarks Scope = 'b'
)

// Codec lists the signer methods the handlers rely on.
// Implementations must be safe for concurrent use.
type Codec interface {
	EncodeCursor(scope Scope, orderValue int64, id string) string
	DecodeCursor(scope Scope, token string) (int64, string, error)
}

// HMAC implements Codec using HMAC-SHA256 for integrity.
// It encodes payloads as base64 URL without padding.
type HMAC struct {
	key []byte
	h   func() hash.Hash
}

// NewHMAC creates an HMAC signer with the provided secret key.
func NewHMAC(key []byte) *HMAC {
	return &HMAC{key: append([]byte(nil), key...), h: sha256.New}
}

// seal signs the payload and returns a base64url token payload||sig.
func (c *HMAC) seal(payload []byte) string {
	mac := hmac.New(c.h, c.key)
	mac.Write(payload)
	sig := mac.Sum(nil)
	buf := append(payload, sig...)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// open verifies the token and returns the payload bytes.
func (c *HMAC) open(token string, minPayloadLen int) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	if len(raw) < minPayloadLen+32 {
		return nil, errors.New("invalid_cursor_length")
	}
	payload := raw[:len(raw)-32]
	sig := raw[len(raw)-32:]
	mac := hmac.New(c.h, c.key)
	mac.Write(payload)
	expected := mac.Sum(nil)
	if !hmac.Equal(sig, expected) {
		return nil, errors.New("invalid_cursor_signature")
	}
	return payload, nil
}

// Cursor payload: scope(1) + orderValue(int64) + idLen(uint16) + id bytes
func (c *HMAC) EncodeCursor(scope Scope, orderValue int64, id string) string {
	idBytes := []byte(id)
	payload := make([]byte, 1+8+2+len(idBytes))
	payload[0] = byte(scope)
	binary.BigEndian.PutUint64(payload[1:9], uint64(orderValue))
	binary.BigEndian.PutUint16(payload[9:11], uint16(len(idBytes)))
	copy(payload[11:], idBytes)
	return c.seal(payload)
}

func (c *HMAC) DecodeCursor(scope Scope, token string) (int64, string, error) {
	payload, err := c.open(token, 11)
	if err != nil {
		return 0, "", err
	}
	if Scope(payload[0]) != scope {
		return 0, "", errors.New("invalid_cursor_scope")
	}
	value := int64(binary.BigEndian.Uint64(payload[1:9]))
	idLen := int(binary.BigEndian.Uint16(payload[9:11]))
	if 11+idLen != len(payload) {
		return 0, "", errors.New("invalid_cursor_payload")
	}
	return value, string(payload[11:]), nil
}
