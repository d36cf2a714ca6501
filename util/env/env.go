package env

import (
	"os"
	"strconv"
	"time"
)

// GetOrDefault returns the value of the environment variable name, or def when it is unset or empty.
func GetOrDefault(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}

// DurationOrDefault parses the environment variable name as a time.Duration.
func DurationOrDefault(name string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(GetOrDefault(name, ""))
	if err != nil {
		return def
	}
	return d
}

// Uint32OrDefault parses the environment variable name as an integer in any base strconv accepts.
func Uint32OrDefault(name string, def uint32) uint32 {
	v, err := strconv.ParseUint(GetOrDefault(name, ""), 0, 32)
	if err != nil {
		return def
	}
	return uint32(v)
}
