package signer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediadiary-server/pkg/signer"
)

func TestCursorRoundTrip(t *testing.T) {
	s := signer.NewHMAC([]byte("test-secret"))
	tok := s.EncodeCursor(signer.ScopeDiary, 1718000000000, "cpt0lbs3o2k2b8v1t5ag")
	v, id, err := s.DecodeCursor(signer.ScopeDiary, tok)
	require.NoError(t, err)
	assert.EqualValues(t, 1718000000000, v)
	assert.Equal(t, "cpt0lbs3o2k2b8v1t5ag", id)
}

func TestCursorRejectsTampering(t *testing.T) {
	s := signer.NewHMAC([]byte("test-secret"))
	tok := s.EncodeCursor(signer.ScopeDiary, 42, "abc")

	_, _, err := signer.NewHMAC([]byte("other")).DecodeCursor(signer.ScopeDiary, tok)
	assert.EqualError(t, err, "invalid_cursor_signature")

	_, _, err = s.DecodeCursor(signer.ScopeBookmarks, tok)
	assert.EqualError(t, err, "invalid_cursor_scope")

	_, _, err = s.DecodeCursor(signer.ScopeDiary, "c2hvcnQ")
	assert.EqualError(t, err, "invalid_cursor_length")

	_, _, err = s.DecodeCursor(signer.ScopeDiary, "!!not-base64")
	assert.Error(t, err)
}
