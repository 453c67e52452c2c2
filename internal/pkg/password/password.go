// Package password hashes staff passwords and refresh tokens.
package password

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is used until SetCost is called
	DefaultCost = 12
	// MinLength is the shortest accepted password, in characters
	MinLength = 8
)

var cost atomic.Int64

func init() {
	cost.Store(DefaultCost)
}

// SetCost changes the bcrypt cost for later calls to Hash.
// Existing hashes keep verifying since the cost is stored in the hash.
func SetCost(c int) error {
	if c < bcrypt.MinCost || c > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost %d out of range [%d, %d]", c, bcrypt.MinCost, bcrypt.MaxCost)
	}
	cost.Store(int64(c))
	return nil
}

// Cost returns the bcrypt cost in use
func Cost() int {
	return int(cost.Load())
}

// Hash hashes a staff password with bcrypt
func Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), Cost())
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify compares a password with a stored hash
func Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashToken returns the hex SHA-256 of a refresh token as kept in refresh_tokens.xml
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidatePassword reports whether password has at least MinLength characters
func ValidatePassword(password string) bool {
	return utf8.RuneCountInString(password) >= MinLength
}
