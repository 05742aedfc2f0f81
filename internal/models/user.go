package models

import "time"

// User represents a verified account, keyed by phone number.
type User struct {
	ID          string    `json:"id" db:"id"`
	Phone       string    `json:"phone" db:"phone"` // E.164, e.g. +972521234567
	DisplayName string    `json:"displayName" db:"display_name"`
	IsVerified  bool      `json:"isVerified" db:"is_verified"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
