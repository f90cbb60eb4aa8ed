package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"math/big"
	"strings"
)

// Code alphabets. Numeric codes suit SMS and voice delivery; the
// alphanumeric set drops lookalike characters (0/O, 1/I/L) for codes that
// humans retype from email.
const (
	AlphabetNumeric      = "0123456789"
	AlphabetAlphanumeric = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
)

// NewCode generates a fixed-length code over the given alphabet, one
// crypto/rand draw per character so no modulo bias sneaks in.
func NewCode(length int, alphabet string) (string, error) {
	if length < 4 || length > 12 {
		return "", errors.New("invalid code length")
	}
	if len(alphabet) < 2 {
		return "", errors.New("invalid code alphabet")
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}

	return b.String(), nil
}

// HashCode is the at-rest digest for issued codes.
func HashCode(code string) [32]byte {
	return sha256.Sum256([]byte(code))
}
