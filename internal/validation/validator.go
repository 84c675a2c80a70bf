package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var hexPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// ValidateHex accepts non-empty hex strings; odd lengths are allowed, the
// CLI pads them with a leading zero nibble.
func ValidateHex(input string) error {
	input = strings.TrimSpace(input)
	if len(input) == 0 {
		return fmt.Errorf("hex string cannot be empty")
	}

	if !hexPattern.MatchString(input) {
		return fmt.Errorf("invalid hex characters")
	}

	return nil
}

// ValidateShardParams checks a (k, n) erasure-coding pair.
func ValidateShardParams(k, n int) error {
	if k < 1 {
		return fmt.Errorf("data shards must be at least 1, got %d", k)
	}
	if n < k {
		return fmt.Errorf("total shards (%d) cannot be less than data shards (%d)", n, k)
	}
	if n > 256 {
		return fmt.Errorf("total shards cannot exceed 256, got %d", n)
	}
	return nil
}

// ValidateLimit checks a hashcash difficulty limit: -1 disables the gate,
// otherwise 0..256 leading zero bits.
func ValidateLimit(limit int) error {
	if limit < -1 || limit > 256 {
		return fmt.Errorf("limit must be -1 or in [0,256], got %d", limit)
	}
	return nil
}

// ValidateTimeout checks a timeout in whole seconds: -1 disables the
// clock.
func ValidateTimeout(seconds int) error {
	if seconds < -1 {
		return fmt.Errorf("timeout must be -1 or non-negative seconds, got %d", seconds)
	}
	return nil
}
