package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
)

// TokenSource supplies the bearer token for outgoing requests.
// An empty token with a nil error means the request is sent anonymously.
type TokenSource interface {
	Token() (string, error)
	// Invalidate discards the current token after the API rejected it.
	Invalidate()
}

// Compile-time interface checks.
var (
	_ TokenSource = (*StaticToken)(nil)
	_ TokenSource = (*FileToken)(nil)
)

// StaticToken holds a token in memory.
type StaticToken struct {
	mu    sync.RWMutex
	token string
	now   func() time.Time
}

// NewStaticToken returns a token source holding token.
func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: strings.TrimSpace(token), now: time.Now}
}

func (s *StaticToken) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := checkExpiry(s.token, s.now()); err != nil {
		return "", err
	}
	return s.token, nil
}

func (s *StaticToken) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// Set replaces the held token.
func (s *StaticToken) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
}

// FileToken reads the token from a file on every request, so a concurrent
// `marketdesk login` is picked up without a restart. A missing file means no
// token. Invalidate removes the file.
type FileToken struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileToken returns a token source backed by path.
func NewFileToken(path string) *FileToken {
	return &FileToken{path: path, now: time.Now}
}

// Path returns the token file location.
func (f *FileToken) Path() string { return f.path }

func (f *FileToken) Token() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if err := checkExpiry(token, f.now()); err != nil {
		return "", err
	}
	return token, nil
}

// Save writes token to the file with owner-only permissions.
func (f *FileToken) Save(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(strings.TrimSpace(token)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

func (f *FileToken) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = os.Remove(f.path)
}

// checkExpiry rejects JWTs whose exp claim is in the past. The signature is
// not verified; the API does that. Opaque tokens pass through.
func checkExpiry(token string, now time.Time) error {
	if token == "" || strings.Count(token, ".") != 2 {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if !exp.After(now) {
		return fmt.Errorf("%w at %s", ErrTokenExpired, exp.UTC().Format(time.RFC3339))
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Data  struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Login exchanges admin credentials for a bearer token. The token is
// returned, not stored; callers hand it to a TokenSource.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body, err := c.Do(ctx, http.MethodPost, "/api/auth/login", nil, loginRequest{Email: email, Password: password})
	if err != nil {
		return "", fmt.Errorf("login %q: %w", email, err)
	}
	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	token := resp.Token
	if token == "" {
		token = resp.Data.Token
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}
