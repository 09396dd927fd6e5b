package strutils

import (
	"fmt"
	"strings"
)

// ParseActiveFlag interprets the boolean-like strings found in activity
// exports. The accepted spellings are case-insensitive.
func ParseActiveFlag(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "t", "1", "yes", "y", "active":
		return true, nil
	case "false", "f", "0", "no", "n", "inactive":
		return false, nil
	}
	return false, fmt.Errorf("invalid active flag: %q", raw)
}
