package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/horizons-hq/horizons-api/internal/application/identity"
	"github.com/horizons-hq/horizons-api/internal/domain"
	"github.com/horizons-hq/horizons-api/internal/verification"
)

// InviteService runs admin-driven onboarding: create (or reuse) an account
// and profile for the invitee, mail them a tokenized link, and turn a
// completed invite into a working password plus a signed-in session.
type InviteService struct {
	mgr         *verification.Manager
	profiles    ProfileStore
	auth        AuthProvider
	mailer      Mailer
	frontendURL string
	ttl         time.Duration
}

func NewInviteService(mgr *verification.Manager, profiles ProfileStore, auth AuthProvider, mailer Mailer, frontendURL string, ttl time.Duration) *InviteService {
	return &InviteService{mgr: mgr, profiles: profiles, auth: auth, mailer: mailer, frontendURL: frontendURL, ttl: ttl}
}

// CompleteInviteResult is what a finished invite hands back. Auth is nil
// when auto-sign-in failed; the password set still succeeded.
type CompleteInviteResult struct {
	Profile *domain.Profile      `json:"profile,omitempty"`
	Auth    *identity.AuthResult `json:"auth,omitempty"`
}

// CreateOrReinvite ensures an account and profile exist for req.Email and
// issues a fresh invite token (superseding any earlier one for the same
// address once used, since the profile email is the anchor). The invite
// email is best-effort: an admin can always re-invite.
func (s *InviteService) CreateOrReinvite(ctx context.Context, req domain.CreateUserRequest) (*domain.Profile, error) {
	role := strings.ToLower(req.Role)
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("invalid role %q: %w", req.Role, domain.ErrBadRequest)
	}

	var userID string
	accountCreated := false
	a, err := s.auth.FindAccountByEmail(ctx, req.Email)
	switch {
	case err == nil:
		userID = a.UserID
	case errors.Is(err, domain.ErrNotFound):
		userID, err = s.auth.CreateAccount(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		accountCreated = true
	default:
		return nil, err
	}

	now := time.Now().UTC()
	p := &domain.Profile{
		UserID:    userID,
		Name:      req.Name,
		Email:     req.Email,
		Role:      role,
		Active:    true,
		ClientID:  req.ClientID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.profiles.Put(ctx, p); err != nil {
		if accountCreated {
			if derr := s.auth.DeleteAccount(ctx, userID); derr != nil {
				slog.Warn("failed to roll back account after profile write failure", "user_id", userID, "err", derr)
			}
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	token, err := verification.NewOpaqueToken()
	if err != nil {
		return nil, err
	}
	rec := &domain.VerificationRecord{
		Secret:  token,
		Payload: map[string]string{domain.PayloadEmail: req.Email},
	}
	if err := s.mgr.Issue(ctx, domain.NamespaceInvite, "", rec, s.ttl); err != nil {
		return nil, err
	}

	link := fmt.Sprintf("%s/invite?token=%s", s.frontendURL, token)
	body := fmt.Sprintf("Hello %s,\n\nAn account has been created for you on Horizons (role: %s).\nSet your password within %d hours using this link:\n\n%s\n\nIf the link has expired, ask your administrator for a new invitation.", req.Name, role, int(s.ttl.Hours()), link)
	if err := s.mailer.SendEmail(req.Email, "Your Horizons account is ready", body); err != nil {
		slog.Warn("failed to send invite email", "email", req.Email, "err", err)
	}
	return p, nil
}

// Complete validates the invite token, sets the password, confirms the
// email and consumes the token. It then signs the user in; if that last
// step fails the password set is still reported as a success.
func (s *InviteService) Complete(ctx context.Context, email, token, newPassword string) (*CompleteInviteResult, error) {
	rec, err := s.mgr.Lookup(ctx, domain.NamespaceInvite, token)
	if err != nil {
		return nil, err
	}
	if rec.Payload[domain.PayloadEmail] != email {
		return nil, domain.ErrInvalidVerification
	}

	a, err := s.auth.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidVerification
		}
		return nil, err
	}
	if err := s.auth.SetPassword(ctx, a.UserID, newPassword); err != nil {
		return nil, err
	}
	if err := s.auth.SetEmail(ctx, a.UserID, email, true); err != nil {
		return nil, err
	}

	if err := s.mgr.Consume(ctx, domain.NamespaceInvite, token); err != nil {
		slog.Warn("failed to consume invite record", "email", email, "err", err)
	}

	result := &CompleteInviteResult{}
	if p, err := s.profiles.Get(ctx, a.UserID); err == nil {
		result.Profile = p
	} else {
		slog.Warn("invite completed but profile fetch failed", "user_id", a.UserID, "err", err)
	}

	auth, err := s.auth.Authenticate(ctx, email, newPassword)
	if err != nil {
		// Degrade gracefully: the password is set, the user can log in
		// manually.
		slog.Warn("auto sign-in after invite failed", "email", email, "err", err)
		return result, nil
	}
	result.Auth = auth
	return result, nil
}
