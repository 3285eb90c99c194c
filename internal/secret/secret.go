// Package secret keeps the mirror token in the OS keyring.
package secret

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "btt"
	user    = "mirror-token"
)

var (
	// ErrNotFound means no token is stored.
	ErrNotFound = errors.New("mirror token not found in keyring")
	// ErrUnavailable means the OS keyring could not be reached.
	ErrUnavailable = errors.New("OS keyring is not available")
)

// Token returns the stored mirror token.
func Token() (string, error) {
	tok, err := keyring.Get(service, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return tok, nil
}

// SetToken stores tok, replacing any previous value.
func SetToken(tok string) error {
	if tok == "" {
		return errors.New("token cannot be empty")
	}
	if err := keyring.Set(service, user, tok); err != nil {
		return fmt.Errorf("storing token in keyring: %w", err)
	}
	return nil
}

// DeleteToken removes the stored token.
func DeleteToken() error {
	err := keyring.Delete(service, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting token from keyring: %w", err)
	}
	return nil
}

// Resolve picks the mirror token: the keyring first, then env, then the
// configured fallback. A missing or unreachable keyring is not an error.
func Resolve(env, configured string) string {
	if tok, err := Token(); err == nil && tok != "" {
		return tok
	}
	if env != "" {
		return env
	}
	return configured
}
