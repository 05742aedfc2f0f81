package models

import "time"

// Group types
const (
	GroupTypeBuilding = "building"
	GroupTypeFamily   = "family"
)

// Membership roles
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Invite code parameters. Codes are uppercase alphanumeric and unique
// across all groups.
const (
	InviteCodeLength   = 10
	GroupNameMaxLength = 100
)

// Group represents a building or family circle joined via invite code.
type Group struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Type       string    `json:"type" db:"type"`
	InviteCode string    `json:"inviteCode" db:"invite_code"`
	CreatedBy  string    `json:"createdBy" db:"created_by"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// GroupMember is one user's membership in one group.
type GroupMember struct {
	ID       string    `json:"id" db:"id"`
	UserID   string    `json:"userId" db:"user_id"`
	GroupID  string    `json:"groupId" db:"group_id"`
	Role     string    `json:"role" db:"role"`
	Details  *string   `json:"details,omitempty" db:"details"`
	JoinedAt time.Time `json:"joinedAt" db:"joined_at"`
}

// MemberWithUser is a membership row joined with the member's account,
// as returned by group details.
type MemberWithUser struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	GroupID     string    `json:"groupId"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joinedAt"`
	DisplayName string    `json:"displayName"`
	Phone       string    `json:"phone"`
	IsVerified  bool      `json:"isVerified"`
	Details     *string   `json:"details,omitempty"`
}

// GroupWithRole pairs a group with the requesting user's role in it.
type GroupWithRole struct {
	Group Group  `json:"group"`
	Role  string `json:"role"`
}

// ValidGroupType reports whether t is a known group type.
func ValidGroupType(t string) bool {
	return t == GroupTypeBuilding || t == GroupTypeFamily
}
