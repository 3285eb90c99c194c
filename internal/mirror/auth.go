package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// ErrNotLoggedIn is returned when OAuth is configured but no token is stored.
var ErrNotLoggedIn = errors.New("not logged in: run 'btt auth login'")

// Web apps restricted to signed-in users accept a bearer token carrying the
// Drive scope.
var requiredScopes = []string{
	"https://www.googleapis.com/auth/drive.readonly",
}

const (
	googleDeviceAuthURL = "https://oauth2.googleapis.com/device/code"
	googleTokenURL      = "https://oauth2.googleapis.com/token"
)

// AuthConfig holds the OAuth client credentials and token location.
type AuthConfig struct {
	ClientID     string
	ClientSecret string
	// TokenPath is where the token is persisted, e.g. ~/.btt/auth/tokens.json.
	TokenPath string
}

// Enabled reports whether requests should carry a bearer token.
func (a AuthConfig) Enabled() bool {
	return a.ClientID != ""
}

// TokenPathIn returns the default token file below base.
func TokenPathIn(base string) string {
	return filepath.Join(base, "auth", "tokens.json")
}

func oauth2Config(a AuthConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		Scopes:       requiredScopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: googleDeviceAuthURL,
			TokenURL:      googleTokenURL,
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// loadToken loads a previously saved token from disk. A missing file yields (nil, nil).
func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file (delete %s to re-authenticate): %w", path, err)
	}
	return &tok, nil
}

// saveToken persists a token to disk.
func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving token file: %w", err)
	}
	return nil
}

// savingTokenSource wraps a TokenSource and persists refreshed tokens.
type savingTokenSource struct {
	ts   oauth2.TokenSource
	path string
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		// Best-effort save; ignore errors.
		_ = saveToken(s.path, tok)
		s.last = tok.AccessToken
	}
	return tok, nil
}

// HTTPClient returns an HTTP client that authenticates with the stored
// token, refreshing and re-saving it as needed. When auth is not configured
// it returns base unchanged.
func HTTPClient(ctx context.Context, a AuthConfig, base *http.Client) (*http.Client, error) {
	if !a.Enabled() {
		return base, nil
	}
	tok, err := loadToken(a.TokenPath)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, ErrNotLoggedIn
	}
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	ts := oauth2.ReuseTokenSource(tok, &savingTokenSource{
		ts:   oauth2Config(a).TokenSource(ctx, tok),
		path: a.TokenPath,
		last: tok.AccessToken,
	})
	c := oauth2.NewClient(ctx, ts)
	if base != nil {
		c.Timeout = base.Timeout
	}
	return c, nil
}

// Login runs the OAuth2 device code flow, printing instructions to out,
// and stores the resulting token.
func Login(ctx context.Context, a AuthConfig, out io.Writer) (*oauth2.Token, error) {
	if !a.Enabled() {
		return nil, errors.New("mirror.auth.client_id is not configured")
	}
	cfg := oauth2Config(a)

	resp, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device auth request failed: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "To sign in, use a web browser to open the page:")
	fmt.Fprintf(out, "  %s\n", resp.VerificationURI)
	fmt.Fprintf(out, "Enter the code: %s\n", resp.UserCode)
	fmt.Fprintln(out)

	tok, err := cfg.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("device authentication failed: %w", err)
	}
	if err := saveToken(a.TokenPath, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Logout removes the stored token.
func Logout(a AuthConfig) error {
	if err := os.Remove(a.TokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}
