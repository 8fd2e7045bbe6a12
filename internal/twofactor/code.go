package twofactor

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

// EmailCodeTTL is how long an emailed code stays valid.
const EmailCodeTTL = 10 * time.Minute

var emailCodeSpace = big.NewInt(1_000_000)

// NewEmailCode returns a uniformly random six-digit code.
func NewEmailCode() (string, error) {
	n, err := rand.Int(rand.Reader, emailCodeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// EqualCodes compares two codes in constant time.
func EqualCodes(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
