package sandbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong
// password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// DefaultTokenTTL is the lifetime of issued tokens.
const DefaultTokenTTL = 12 * time.Hour

// Admin is a sandbox operator account.
type Admin struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Claims are the JWT claims the sandbox issues.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Auth issues and verifies HS256 tokens for admin accounts.
type Auth struct {
	db     *sql.DB
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuth creates an authenticator over the repository's admins table.
func NewAuth(repo *Repository, secret []byte, ttl time.Duration) (*Auth, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Auth{db: repo.db, secret: secret, ttl: ttl, now: time.Now}, nil
}

// EnsureAdmin creates the admin account if the email is not taken yet.
func (a *Auth) EnsureAdmin(ctx context.Context, email, name, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return fmt.Errorf("admin email and password are required: %w", ErrInvalidPayload)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO admins (id, email, name, password_hash) VALUES (?, ?, ?, ?)
		 ON CONFLICT (email) DO NOTHING`,
		uuid.NewString(), email, name, string(hash),
	)
	if err != nil {
		return fmt.Errorf("create admin %q: %w", email, err)
	}
	return nil
}

// Login checks the credentials and returns the account with a fresh token.
func (a *Auth) Login(ctx context.Context, email, password string) (Admin, string, error) {
	var (
		admin Admin
		hash  string
	)
	err := a.db.QueryRowContext(ctx,
		"SELECT id, email, name, password_hash FROM admins WHERE email = ?",
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&admin.ID, &admin.Email, &admin.Name, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Admin{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return Admin{}, "", fmt.Errorf("get admin: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return Admin{}, "", ErrInvalidCredentials
	}
	admin.Role = "admin"

	token, err := a.issue(admin)
	if err != nil {
		return Admin{}, "", err
	}
	return admin, token, nil
}

func (a *Auth) issue(admin Admin) (string, error) {
	now := a.now()
	claims := Claims{
		Email: admin.Email,
		Role:  admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token issued by this authenticator.
func (a *Auth) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	return claims, nil
}
