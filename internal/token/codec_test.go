package token

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_123)
	tok := Encode("3f2a6c1e-9d1b-4d6e-8f00-0a1b2c3d4e5f", now)

	c, err := Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, "3f2a6c1e-9d1b-4d6e-8f00-0a1b2c3d4e5f", c.MeetingID)
	assert.True(t, c.IssuedAt.Equal(now))
}

func TestDecode_AcceptsPadding(t *testing.T) {
	padded := base64.URLEncoding.EncodeToString([]byte("m1:1000"))
	c, err := Decode(padded)
	require.NoError(t, err)
	assert.Equal(t, "m1", c.MeetingID)
}

func TestDecode_Malformed(t *testing.T) {
	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }
	cases := map[string]string{
		"empty":         "",
		"not base64":    "***",
		"no separator":  enc("meeting"),
		"empty id":      enc(":123"),
		"bad timestamp": enc("m1:abc"),
		"extra parts":   enc("m1:1:2"),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(tok)
			assert.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}
