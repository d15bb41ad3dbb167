package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/horizons-hq/horizons-api/internal/domain"
	"github.com/horizons-hq/horizons-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// AccountStore is the minimal interface the identity service requires from
// the accounts table.
type AccountStore interface {
	Put(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, userID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	Delete(ctx context.Context, userID string) error
}

// ProfileStore is the minimal interface the identity service requires from
// the profiles table (role and active flag at login time).
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
}

// SessionStore is the minimal interface the identity service requires from
// the sessions table.
type SessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
}

// TokenSigner signs bearer JWTs.
type TokenSigner interface {
	Sign(userID, role, sessionID string) (string, error)
}

// AuthResult is a usable signed-in session.
type AuthResult struct {
	Bearer       string          `json:"Bearer"`
	RefreshToken string          `json:"refresh_token"`
	Session      *domain.Session `json:"session"`
}

// Service is the authentication provider: it owns credentials and session
// issuance. Flow orchestrators treat it as an external collaborator.
type Service struct {
	accounts   AccountStore
	profiles   ProfileStore
	sessions   SessionStore
	signer     TokenSigner
	refreshDur time.Duration
}

func NewService(accounts AccountStore, profiles ProfileStore, sessions SessionStore, signer TokenSigner, refreshDur time.Duration) *Service {
	return &Service{
		accounts:   accounts,
		profiles:   profiles,
		sessions:   sessions,
		signer:     signer,
		refreshDur: refreshDur,
	}
}

// CreateAccount registers a credential-less account for email and returns
// its user id. The account cannot authenticate until a password is set
// (invite completion does that).
func (s *Service) CreateAccount(ctx context.Context, email string) (string, error) {
	now := time.Now().UTC()
	a := &domain.Account{
		UserID:    id.New(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.accounts.Put(ctx, a); err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}
	return a.UserID, nil
}

func (s *Service) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.accounts.GetByEmail(ctx, email)
}

// SetPassword replaces the account's password hash.
func (s *Service) SetPassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.accounts.Update(ctx, userID, map[string]interface{}{"password_hash": string(hash)})
}

// SetEmail updates the account email and its confirmation flag.
func (s *Service) SetEmail(ctx context.Context, userID, email string, confirmed bool) error {
	return s.accounts.Update(ctx, userID, map[string]interface{}{
		"email":           email,
		"email_confirmed": confirmed,
	})
}

// DeleteAccount removes the account. Used to roll back a failed invite.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	return s.accounts.Delete(ctx, userID)
}

// Authenticate verifies credentials and opens a session. Any credential
// failure is ErrUnauthorized with no further detail; a deactivated profile
// is ErrForbidden.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if a.PasswordHash == "" {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}

	p, err := s.profiles.Get(ctx, a.UserID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, fmt.Errorf("account is deactivated: %w", domain.ErrForbidden)
	}

	return s.openSession(ctx, a.UserID, p.Role)
}

// Refresh rotates the refresh token and issues a new bearer.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	sess, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if sess.RefreshExpiresAt < time.Now().Unix() {
		return nil, fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}

	p, err := s.profiles.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, fmt.Errorf("account is deactivated: %w", domain.ErrForbidden)
	}

	newToken, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	newExpiry := time.Now().Add(s.refreshDur).Unix()
	if err := s.sessions.RotateRefreshToken(ctx, sess.SessionID, newToken, newExpiry); err != nil {
		return nil, err
	}

	bearer, err := s.signer.Sign(sess.UserID, p.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.RefreshToken = newToken
	sess.RefreshExpiresAt = newExpiry
	return &AuthResult{Bearer: bearer, RefreshToken: newToken, Session: sess}, nil
}

func (s *Service) openSession(ctx context.Context, userID, role string) (*AuthResult, error) {
	refreshToken, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           userID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	bearer, err := s.signer.Sign(userID, role, sess.SessionID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Bearer: bearer, RefreshToken: refreshToken, Session: sess}, nil
}

// newRefreshToken generates a cryptographically random 64-character hex token.
func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
