// Package user resolves the local identity used as the default comment
// author and the self entry in participant lists.
package user

import (
	"os"
	"os/user"
)

// Current returns the local username. It tries the OS account first,
// then the USER environment variable, and never returns an empty
// string.
func Current() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}
