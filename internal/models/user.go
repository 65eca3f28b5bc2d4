package models

import "gorm.io/gorm"

// User represents a user in the system. Accounts and credentials live in
// the external identity service; this table only carries the identity
// rows that sessions and memberships reference.
type User struct {
	gorm.Model
	Nickname string `gorm:"size:255;unique;not null"`
	Email    string `gorm:"size:255;unique;not null"`
}
