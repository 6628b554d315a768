package models

import "time"

// RefreshToken is one outstanding refresh session. Several rows may exist
// per user (multi-device sessions).
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
