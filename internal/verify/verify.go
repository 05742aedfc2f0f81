// Package verify sends and checks one-time SMS codes used to prove
// phone ownership.
package verify

import (
	"context"
	"errors"
	"time"
)

// CodeExpiry is the advisory code lifetime shown to the user. Twilio
// enforces its own expiry server-side; the store provider enforces
// this one.
const CodeExpiry = 10 * time.Minute

// CodeLength is the number of digits in a verification code.
const CodeLength = 6

// Errors a provider can surface. SendCode failures map to distinct
// user-facing messages; CheckCode failures other than ErrCodeRejected
// are provider trouble.
var (
	ErrInvalidNumber  = errors.New("verify: phone number rejected by provider")
	ErrRateLimited    = errors.New("verify: too many attempts")
	ErrBlockedNumber  = errors.New("verify: phone number is blocked")
	ErrDeliveryFailed = errors.New("verify: code delivery failed")
	ErrCodeRejected   = errors.New("verify: code rejected")
	ErrProvider       = errors.New("verify: provider error")
)

// Verifier is the two-phase verification contract: send a code to a
// phone, then check the code the user typed back. Both calls are
// stateless from the caller's point of view; the provider is the
// source of truth for code validity and expiry.
type Verifier interface {
	SendCode(ctx context.Context, phone string) error
	CheckCode(ctx context.Context, phone, code string) error
}
