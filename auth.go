package etiquette

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// hashPassword hashes a plain-text password with bcrypt's default cost.
func hashPassword(password []byte) ([]byte, error) {
	hashed, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hashed, nil
}

// checkPassword reports whether password matches hash in constant time.
func checkPassword(hash, password []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, password) == nil
}
