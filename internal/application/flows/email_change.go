package flows

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/horizons-hq/horizons-api/internal/domain"
	"github.com/horizons-hq/horizons-api/internal/verification"
)

// EmailChangeService lets an authenticated user move to a new address. The
// code goes to the NEW mailbox: the flow proves ownership of the address
// being adopted, not the one being left.
type EmailChangeService struct {
	mgr      *verification.Manager
	profiles ProfileStore
	auth     AuthProvider
	mailer   Mailer
	ttl      time.Duration
}

func NewEmailChangeService(mgr *verification.Manager, profiles ProfileStore, auth AuthProvider, mailer Mailer, ttl time.Duration) *EmailChangeService {
	return &EmailChangeService{mgr: mgr, profiles: profiles, auth: auth, mailer: mailer, ttl: ttl}
}

// Request issues a change code for userID and mails it to newEmail.
// Requesting a change to the current address is a conflict, detected before
// anything is issued.
func (s *EmailChangeService) Request(ctx context.Context, userID, newEmail string) error {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return err
	}
	if strings.EqualFold(p.Email, newEmail) {
		return fmt.Errorf("new email is identical to current: %w", domain.ErrConflict)
	}

	code, err := verification.NewNumericCode()
	if err != nil {
		return err
	}
	rec := &domain.VerificationRecord{
		Secret:  code,
		Payload: map[string]string{domain.PayloadNewEmail: newEmail},
	}
	if err := s.mgr.Issue(ctx, domain.NamespaceEmailChange, userID, rec, s.ttl); err != nil {
		return err
	}

	body := fmt.Sprintf("Your email change code is: %s\n\nIt expires in %d minutes. Enter it in Horizons to confirm this address.", code, int(s.ttl.Minutes()))
	if err := s.mailer.SendEmail(newEmail, "Confirm your new Horizons email", body); err != nil {
		if derr := s.mgr.Consume(ctx, domain.NamespaceEmailChange, userID); derr != nil {
			slog.Warn("failed to delete email-change record after send failure", "user_id", userID, "err", derr)
		}
		return fmt.Errorf("send email-change code: %w", err)
	}
	return nil
}

// Complete applies the pending change. The authentication provider is the
// source of truth and is updated first; if the profile update then fails,
// the provider is rolled back to the previous address and the record stays
// unconsumed so the same code can be retried.
func (s *EmailChangeService) Complete(ctx context.Context, userID, code string) (*domain.Profile, error) {
	rec, err := s.mgr.Validate(ctx, domain.NamespaceEmailChange, userID, code)
	if err != nil {
		return nil, err
	}
	newEmail := rec.Payload[domain.PayloadNewEmail]
	if newEmail == "" {
		return nil, domain.ErrInvalidVerification
	}

	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	oldEmail := p.Email

	if err := s.auth.SetEmail(ctx, userID, newEmail, true); err != nil {
		return nil, err
	}
	if err := s.profiles.Update(ctx, userID, map[string]interface{}{"email": newEmail}); err != nil {
		if rerr := s.auth.SetEmail(ctx, userID, oldEmail, true); rerr != nil {
			slog.Error("email rollback failed, auth and profile now disagree", "user_id", userID, "err", rerr)
		}
		return nil, fmt.Errorf("update profile email: %w", err)
	}

	if err := s.mgr.Consume(ctx, domain.NamespaceEmailChange, userID); err != nil {
		slog.Warn("failed to consume email-change record", "user_id", userID, "err", err)
	}

	p.Email = newEmail
	return p, nil
}
