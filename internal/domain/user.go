// Package domain contains entity without logic, just meta-data
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDInvalid = errors.New("user id is not a positive integer")
)

// UserID is the externally issued identity of a human. It travels as a
// string-encoded integer in most client frames.
type UserID int64

func ParseUserID(s string) (UserID, error) {
	if s == "" {
		return 0, ErrUserIDEmpty
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrUserIDInvalid
	}
	return UserID(n), nil
}

func (u UserID) String() string { return strconv.FormatInt(int64(u), 10) }

// UnmarshalJSON accepts both "42" and 42.
func (u *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*u = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		id, err := ParseUserID(s)
		if err != nil {
			return err
		}
		*u = id
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return ErrUserIDInvalid
	}
	if n <= 0 {
		return ErrUserIDInvalid
	}
	*u = UserID(n)
	return nil
}
