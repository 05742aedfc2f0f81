package models

import "time"

// Presence statuses a member can report during an emergency.
const (
	PresenceSafe     = "safe"
	PresencePresent  = "present"
	PresenceNeedHelp = "need_help"
	PresenceAbsent   = "absent"
	PresenceUnknown  = "unknown"
)

// Presence is one user's current status within one group. The store
// keeps at most one row per (group, user) pair.
type Presence struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"userId" db:"user_id"`
	GroupID     string    `json:"groupId" db:"group_id"`
	Status      string    `json:"status" db:"status"`
	LastUpdated time.Time `json:"lastUpdated" db:"last_updated"`
}

// ValidPresenceStatus reports whether s is a known presence status.
func ValidPresenceStatus(s string) bool {
	switch s {
	case PresenceSafe, PresencePresent, PresenceNeedHelp, PresenceAbsent, PresenceUnknown:
		return true
	}
	return false
}
