package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
)

// GenerateCode returns a uniformly random numeric code of the given length.
func GenerateCode(digits int) (string, error) {
	if digits <= 0 {
		digits = 6
	}
	var b strings.Builder
	b.Grow(digits)
	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// HashCode binds code to its challenge so a stored hash cannot be replayed
// against another challenge.
func HashCode(key []byte, challengeID string, code string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(challengeID))
	mac.Write([]byte{':'})
	mac.Write([]byte(code))
	return mac.Sum(nil)
}

func VerifyCode(key []byte, challengeID string, code string, expected []byte) bool {
	return hmac.Equal(HashCode(key, challengeID, code), expected)
}

// IsNumericCode reports whether code is exactly digits ASCII digits.
func IsNumericCode(code string, digits int) bool {
	if len(code) != digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
