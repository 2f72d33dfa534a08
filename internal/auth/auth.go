// Package auth provides access to the session's bearer token. Token issuance
// and refresh belong to an external collaborator; this package only reads the
// current value at authentication time.
package auth

import (
	"fmt"
	"os"
	"strings"

	"github.com/achi777/cryptoTrade/internal/config"
)

// TokenSource yields the current access token. Implementations must be safe
// for concurrent use; Token is called on every authenticate, so a rotated
// token is picked up on the next reconnect without restarting the session.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a fixed token, mainly for tests and one-off tools.
type StaticToken string

func (s StaticToken) Token() (string, error) {
	if s == "" {
		return "", fmt.Errorf("empty access token")
	}
	return string(s), nil
}

// FileToken reads the token from a file on every call, so an external
// refresher can rotate it in place.
type FileToken struct {
	Path string
}

func (f FileToken) Token() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", f.Path)
	}
	return token, nil
}

// EnvToken reads the token from an environment variable on every call.
type EnvToken struct {
	Name string
}

func (e EnvToken) Token() (string, error) {
	token := strings.TrimSpace(os.Getenv(e.Name))
	if token == "" {
		return "", fmt.Errorf("environment variable %s is not set", e.Name)
	}
	return token, nil
}

// FromConfig builds the token source described by the API configuration.
func FromConfig(cfg config.APIConfig) (TokenSource, error) {
	switch {
	case cfg.TokenPath != "":
		return FileToken{Path: cfg.TokenPath}, nil
	case cfg.TokenEnv != "":
		return EnvToken{Name: cfg.TokenEnv}, nil
	default:
		return nil, fmt.Errorf("no token source configured")
	}
}
