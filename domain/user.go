// Package domain contains core concepts of the messaging system.
// This file defines User entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// User is a registered participant. The numeric ID is assigned by the user
// store at registration and never changes; the email is stored in its
// normalized form and is unique.
type User struct {
	ID        int64
	Email     string
	Name      string
	Contacts  []string
	CreatedAt time.Time
}
