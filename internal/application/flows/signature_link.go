package flows

import (
	"context"
	"time"

	"github.com/horizons-hq/horizons-api/internal/domain"
	"github.com/horizons-hq/horizons-api/internal/verification"
)

// SignatureLinkService mints and resolves the shareable CRA signing links.
// Resolution is public and read-only: possession of the token is the whole
// credential, and resolving does not consume it — a client may open the
// link several times before signing.
type SignatureLinkService struct {
	mgr *verification.Manager
	ttl time.Duration
}

func NewSignatureLinkService(mgr *verification.Manager, ttl time.Duration) *SignatureLinkService {
	return &SignatureLinkService{mgr: mgr, ttl: ttl}
}

// Issue creates a link token referencing the consultant and the CRA to sign.
func (s *SignatureLinkService) Issue(ctx context.Context, userID, craID string) (string, error) {
	token, err := verification.NewOpaqueToken()
	if err != nil {
		return "", err
	}
	rec := &domain.VerificationRecord{
		Secret: token,
		Payload: map[string]string{
			domain.PayloadUserID: userID,
			domain.PayloadCRAID:  craID,
		},
	}
	if err := s.mgr.Issue(ctx, domain.NamespaceSignatureLink, "", rec, s.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the user and CRA a valid token points at. A missing or
// malformed record answers with the same generic verification error as a
// wrong token.
func (s *SignatureLinkService) Resolve(ctx context.Context, token string) (userID, craID string, err error) {
	rec, err := s.mgr.Lookup(ctx, domain.NamespaceSignatureLink, token)
	if err != nil {
		return "", "", err
	}
	userID = rec.Payload[domain.PayloadUserID]
	craID = rec.Payload[domain.PayloadCRAID]
	if userID == "" || craID == "" {
		return "", "", domain.ErrInvalidVerification
	}
	return userID, craID, nil
}
