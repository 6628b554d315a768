package models

import (
	"time"

	"github.com/profiledoc/profiledoc/internal/server/auth"
)

// User is a registered account. PasswordHash holds the bcrypt hash of the
// password and must never cross the HTTP boundary; response schemas own
// their own field sets.
type User struct {
	ID           string
	Email        string
	Name         string
	Surname      string
	DateOfBirth  time.Time
	PasswordHash string
	CreatedAt    time.Time
}

// NewUser builds a User from profile fields and a raw password. The raw
// password is hashed immediately and only the hash is retained.
func NewUser(email, name, surname string, dateOfBirth time.Time, rawPassword string) (*User, error) {
	u := &User{
		Email:       email,
		Name:        name,
		Surname:     surname,
		DateOfBirth: dateOfBirth,
	}
	if err := u.SetPassword(rawPassword); err != nil {
		return nil, err
	}
	return u, nil
}

// SetPassword replaces the stored hash with the hash of rawPassword.
// This is the only way to mutate the credential.
func (u *User) SetPassword(rawPassword string) error {
	hash, err := auth.HashPassword(rawPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// CheckPassword reports whether rawPassword matches the stored hash.
func (u *User) CheckPassword(rawPassword string) bool {
	return auth.CheckPassword(rawPassword, u.PasswordHash)
}
