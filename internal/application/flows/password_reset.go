package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/horizons-hq/horizons-api/internal/domain"
	"github.com/horizons-hq/horizons-api/internal/verification"
)

// PasswordResetService runs the forgot-password flow: a 6-digit code mailed
// to the account address, then a code-gated password set.
type PasswordResetService struct {
	mgr      *verification.Manager
	profiles ProfileStore
	auth     AuthProvider
	mailer   Mailer
	ttl      time.Duration
}

func NewPasswordResetService(mgr *verification.Manager, profiles ProfileStore, auth AuthProvider, mailer Mailer, ttl time.Duration) *PasswordResetService {
	return &PasswordResetService{mgr: mgr, profiles: profiles, auth: auth, mailer: mailer, ttl: ttl}
}

// Request issues a reset code for email and mails it. When no account exists
// for the address it returns nil without issuing anything: the response must
// be identical either way so the endpoint cannot be used to enumerate
// accounts.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	if _, err := s.profiles.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Info("password reset requested for unknown email", "email", email)
			return nil
		}
		return err
	}

	code, err := verification.NewNumericCode()
	if err != nil {
		return err
	}
	rec := &domain.VerificationRecord{Secret: code}
	if err := s.mgr.Issue(ctx, domain.NamespacePasswordReset, email, rec, s.ttl); err != nil {
		return err
	}

	body := fmt.Sprintf("Your password reset code is: %s\n\nIt expires in %d minutes. If you did not request a reset, you can ignore this email.", code, int(s.ttl.Minutes()))
	if err := s.mailer.SendEmail(email, "Your Horizons password reset code", body); err != nil {
		// The user never received the code; a pending record would only be
		// a dead end. Cleanup is best-effort.
		if derr := s.mgr.Consume(ctx, domain.NamespacePasswordReset, email); derr != nil {
			slog.Warn("failed to delete reset record after send failure", "email", email, "err", derr)
		}
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// Verify checks the code without consuming it, so the UI can gate the
// new-password form. Failure is always the one generic verification error.
func (s *PasswordResetService) Verify(ctx context.Context, email, code string) error {
	_, err := s.mgr.Validate(ctx, domain.NamespacePasswordReset, email, code)
	return err
}

// Complete sets the new password if the code checks out. The record is
// consumed only after the password change succeeded; on a downstream failure
// the code stays valid so the user can retry until it expires.
func (s *PasswordResetService) Complete(ctx context.Context, email, code, newPassword string) error {
	if _, err := s.mgr.Validate(ctx, domain.NamespacePasswordReset, email, code); err != nil {
		return err
	}

	a, err := s.auth.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// A code without an account should be impossible; answer the
			// same way as any bad code.
			return domain.ErrInvalidVerification
		}
		return err
	}
	if err := s.auth.SetPassword(ctx, a.UserID, newPassword); err != nil {
		return err
	}

	if err := s.mgr.Consume(ctx, domain.NamespacePasswordReset, email); err != nil {
		slog.Warn("failed to consume reset record", "email", email, "err", err)
	}
	return nil
}
