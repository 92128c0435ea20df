package meeting

import (
	"crypto/rand"
	"fmt"

	"github.com/dkeye/classmeet/internal/domain"
)

const (
	// CodeAlphabet leaves out I, O, 0 and 1.
	CodeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength      = 6
	MaxCodeAttempts = 10
)

// CodeSource yields candidate meeting codes.
type CodeSource interface {
	Next() (domain.MeetingCode, error)
}

type randomCodes struct{}

// RandomCodes draws codes from crypto/rand. The alphabet has 32 symbols, so
// reducing a byte modulo its length is unbiased.
func RandomCodes() CodeSource { return randomCodes{} }

func (randomCodes) Next() (domain.MeetingCode, error) {
	b := make([]byte, CodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("meeting: read random bytes: %w", err)
	}
	for i := range b {
		b[i] = CodeAlphabet[int(b[i])%len(CodeAlphabet)]
	}
	return domain.MeetingCode(b), nil
}
