package services

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors the handlers translate into HTTP statuses.
var (
	ErrInvalidPhone      = errors.New("invalid phone number")
	ErrInvalidCode       = errors.New("invalid verification code")
	ErrUserNotFound      = errors.New("user not found")
	ErrGroupNotFound     = errors.New("group not found")
	ErrMemberNotFound    = errors.New("member not found")
	ErrInvalidInviteCode = errors.New("invalid invite code")
	ErrAlreadyMember     = errors.New("already a member of this group")
	ErrPhoneTaken        = errors.New("phone number already registered")
	ErrNotMember         = errors.New("not a member of this group")
	ErrNotAdmin          = errors.New("not an admin of this group")
)

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique-constraint
// violation on the named constraint ("" matches any).
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
