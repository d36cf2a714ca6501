package util

import "strings"

// IsTruthy reports whether an env var style value means "on".
func IsTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on", "y", "t":
		return true
	}
	return false
}
