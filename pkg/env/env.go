package env

import "os"

// Get reads key from the process environment, treating unset and empty
// the same and returning fallback for both.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
