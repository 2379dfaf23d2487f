package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

// writeTokenFile writes a token to a temp file and returns its path
func writeTokenFile(t *testing.T, token string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte(token), 0600); err != nil {
		t.Fatalf("Failed to write token file: %v", err)
	}
	return path
}

// signedToken creates a signed JWT with the given expiry
func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

// ============================================================================
// TEST CASES
// ============================================================================

func TestStatic_Token(t *testing.T) {
	t.Parallel()

	p := Static{Value: "abc123"}
	token, err := p.Token()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if token != "abc123" {
		t.Errorf("Expected token abc123, got %s", token)
	}
}

func TestStatic_EmptyToken(t *testing.T) {
	t.Parallel()

	p := Static{}
	_, err := p.Token()
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("Expected ErrNoToken, got %v", err)
	}
}

func TestFileJWT_ValidToken(t *testing.T) {
	t.Parallel()

	raw := signedToken(t, time.Now().Add(time.Hour))
	p := NewFileJWT(writeTokenFile(t, raw+"\n"))

	token, err := p.Token()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if token != raw {
		t.Error("Expected trimmed token to round-trip")
	}
}

func TestFileJWT_ExpiredToken(t *testing.T) {
	t.Parallel()

	raw := signedToken(t, time.Now().Add(-time.Hour))
	p := NewFileJWT(writeTokenFile(t, raw))

	_, err := p.Token()
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
}

func TestFileJWT_OpaqueTokenPassesThrough(t *testing.T) {
	t.Parallel()

	// Not a JWT at all; expiry checking must not reject it
	p := NewFileJWT(writeTokenFile(t, "opaque-session-token"))

	token, err := p.Token()
	if err != nil {
		t.Fatalf("Expected no error for opaque token, got %v", err)
	}
	if token != "opaque-session-token" {
		t.Errorf("Expected opaque token unchanged, got %s", token)
	}
}

func TestFileJWT_MissingFile(t *testing.T) {
	t.Parallel()

	p := NewFileJWT(filepath.Join(t.TempDir(), "does-not-exist"))
	_, err := p.Token()
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("Expected ErrNoToken, got %v", err)
	}
}

func TestFileJWT_EmptyFile(t *testing.T) {
	t.Parallel()

	p := NewFileJWT(writeTokenFile(t, "  \n"))
	_, err := p.Token()
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("Expected ErrNoToken, got %v", err)
	}
}
