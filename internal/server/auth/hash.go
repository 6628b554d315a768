// Package auth implements the credential primitives of the service:
// bcrypt password hashing and JWT minting/verification for the access and
// refresh token classes.
package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a salted bcrypt hash from a raw password.
// The raw password is never logged or stored.
func HashPassword(rawPassword string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether rawPassword matches hash. A wrong password
// is not an error, it is simply false. A malformed stored hash also yields
// false; that situation indicates a corrupted row, not user input.
func CheckPassword(rawPassword string, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawPassword)) == nil
}
