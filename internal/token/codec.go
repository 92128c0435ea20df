// Package token encodes the per-meeting join token handed out by the REST
// layer and presented again on the signaling connection. The token is a
// correlation credential: it is reversible and carries no MAC.
package token

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrMalformedToken = errors.New("token: malformed join token")

// Claims is what a decoded token carries.
type Claims struct {
	MeetingID string
	IssuedAt  time.Time
}

// Encode returns base64url("<meetingID>:<unix millis>") without padding.
func Encode(meetingID string, issuedAt time.Time) string {
	raw := meetingID + ":" + strconv.FormatInt(issuedAt.UnixMilli(), 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func Decode(tok string) (Claims, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return Claims{}, ErrMalformedToken
	}
	// Older clients pad the token.
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(tok, "="))
	if err != nil {
		return Claims{}, ErrMalformedToken
	}
	id, ts, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" || strings.Contains(ts, ":") {
		return Claims{}, ErrMalformedToken
	}
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || ms < 0 {
		return Claims{}, ErrMalformedToken
	}
	return Claims{MeetingID: id, IssuedAt: time.UnixMilli(ms)}, nil
}
