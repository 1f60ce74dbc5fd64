package app

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"portfolio-agent/internal/pkg/jwtutil"
)

// AdminAuthService checks the single admin account from configuration.
type AdminAuthService struct {
	username      string
	passwordHash  string
	jwtSecret     string
	jwtExpiration time.Duration
}

type LoginInput struct {
	Username string
	Password string
}

type AuthResult struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}

func NewAdminAuthService(username, passwordHash, jwtSecret string, jwtExpiration time.Duration) *AdminAuthService {
	if strings.TrimSpace(username) == "" {
		username = "admin"
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour
	}
	return &AdminAuthService{
		username:      username,
		passwordHash:  passwordHash,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// Enabled reports whether an admin password hash and signing secret are set.
func (s *AdminAuthService) Enabled() bool {
	return s != nil && s.passwordHash != "" && s.jwtSecret != ""
}

func (s *AdminAuthService) Login(input LoginInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	password := strings.TrimSpace(input.Password)
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}
	if !s.Enabled() || username != s.username {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, username)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:     token,
		Username:  username,
		ExpiresAt: time.Now().Add(s.jwtExpiration),
	}, nil
}

func (s *AdminAuthService) JWTSecret() string {
	return s.jwtSecret
}
