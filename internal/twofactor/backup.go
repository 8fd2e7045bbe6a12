package twofactor

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// BackupCodeCount is how many backup codes a user gets at a time.
const BackupCodeCount = 10

// NewBackupCodes returns n codes of 8 uppercase hex characters.
func NewBackupCodes(n int) ([]string, error) {
	codes := make([]string, n)
	buf := make([]byte, 4)
	for i := range codes {
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		codes[i] = strings.ToUpper(hex.EncodeToString(buf))
	}
	return codes, nil
}

// CanonicalBackupCode uppercases the code and strips dashes and spaces.
func CanonicalBackupCode(code string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(code)))
}

// HashBackupCode binds the canonical code to the user so equal codes never share a hash.
func HashBackupCode(userID int64, code string) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(userID, 10) + "\x00" + CanonicalBackupCode(code)))
	return hex.EncodeToString(sum[:])
}

func HashBackupCodes(userID int64, codes []string) []string {
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = HashBackupCode(userID, c)
	}
	return hashes
}
