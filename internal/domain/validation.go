package domain

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// ValidateSolanaAddress checks that s is a base58 string decoding to a
// 32-byte public key.
func ValidateSolanaAddress(s string) error {
	if s == "" {
		return fmt.Errorf("empty address")
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid base58 address %q: %w", s, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("address %q decodes to %d bytes, want 32", s, len(raw))
	}
	return nil
}
