package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Ambiguous characters (0/O, 1/I) are left out so codes survive being read aloud.
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewInviteCode returns a random code of length n.
func NewInviteCode(n int) (string, error) {
	max := big.NewInt(int64(len(inviteAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate invite code: %w", err)
		}
		buf[i] = inviteAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
