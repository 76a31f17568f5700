package domain

// SessionID identifies one live connection. A fresh value is minted per
// connection and discarded on disconnect.
type SessionID string

// Identity is the authenticated (user id, identifier) pair bound to a
// session exactly once, at connect time.
type Identity struct {
	UserID int64
	Email  string
}
