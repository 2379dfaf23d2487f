// Package credentials supplies the bearer token attached to authenticated
// remote store calls. The token's transport and renewal are someone else's
// job; this package only hands out the current credential and refuses to
// hand out one that has already expired.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("no credential available")
	ErrTokenExpired = errors.New("credential has expired")
)

// Provider supplies the current bearer token. Implementations must be
// side-effect free from the caller's point of view.
type Provider interface {
	Token() (string, error)
}

// Static is a fixed-token provider, mainly for tests and non-expiring
// service credentials.
type Static struct {
	Value string
}

func (s Static) Token() (string, error) {
	if s.Value == "" {
		return "", ErrNoToken
	}
	return s.Value, nil
}

// FileJWT reads a JWT from a file on every call and rejects it once its
// exp claim has passed. The signature is not verified here; the remote
// store is the authority on token validity, this is only an early exit
// before a request that would be refused anyway.
type FileJWT struct {
	Path string

	// now is overridable for tests; defaults to time.Now.
	now func() time.Time
}

// NewFileJWT creates a file-backed JWT provider.
func NewFileJWT(path string) *FileJWT {
	return &FileJWT{Path: path, now: time.Now}
}

func (f *FileJWT) Token() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}

	if err := f.checkExpiry(token); err != nil {
		return "", err
	}

	return token, nil
}

// checkExpiry parses the token without verifying its signature and checks
// the exp claim. Tokens that do not parse as JWTs are passed through
// untouched so opaque tokens keep working.
func (f *FileJWT) checkExpiry(token string) error {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}

	now := time.Now
	if f.now != nil {
		now = f.now
	}
	if exp.Before(now()) {
		return ErrTokenExpired
	}
	return nil
}
