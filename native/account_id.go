package native

import "fmt"

// AccountID is an opaque account address. The format follows the usual
// chain rules: 2..64 characters, lowercase alphanumeric segments separated
// by a single '-', '_' or '.'.
type AccountID string

const (
	MinAccountIDLen = 2
	MaxAccountIDLen = 64
)

func (id AccountID) Validate() error {
	if len(id) < MinAccountIDLen || len(id) > MaxAccountIDLen {
		return fmt.Errorf("%w: %q has invalid length %d", ErrInvalidAccountID, id, len(id))
	}
	lastSeparator := true // leading separator is invalid
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z' || c >= '0' && c <= '9':
			lastSeparator = false
		case c == '-' || c == '_' || c == '.':
			if lastSeparator {
				return fmt.Errorf("%w: %q has consecutive or leading separators", ErrInvalidAccountID, id)
			}
			lastSeparator = true
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidAccountID, id, c)
		}
	}
	if lastSeparator {
		return fmt.Errorf("%w: %q ends with a separator", ErrInvalidAccountID, id)
	}
	return nil
}

func (id AccountID) String() string {
	return string(id)
}

// LongestAccountID is the maximum-length legal id, used to measure the
// worst-case storage footprint of a synthetic account.
func LongestAccountID() AccountID {
	b := make([]byte, MaxAccountIDLen)
	for i := range b {
		b[i] = 'a'
	}
	return AccountID(b)
}
