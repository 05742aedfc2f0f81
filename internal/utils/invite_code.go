package utils

import (
	"crypto/rand"
	"fmt"
)

const inviteCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateInviteCode returns a random uppercase alphanumeric code of
// the given length. Uses crypto/rand so codes are not guessable.
func GenerateInviteCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	code := make([]byte, length)
	for i, b := range buf {
		code[i] = inviteCodeChars[int(b)%len(inviteCodeChars)]
	}
	return string(code), nil
}
