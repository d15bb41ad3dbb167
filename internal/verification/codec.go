package verification

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/horizons-hq/horizons-api/internal/domain"
)

const numericCodeLen = 6

// NewOpaqueToken generates a cryptographically random, URL-safe token for
// secrets that travel inside a hyperlink (invites, signature links).
func NewOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewNumericCode generates a fixed-width 6-digit decimal code drawn from a
// uniform distribution, for secrets a human types in from an email.
func NewNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", numericCodeLen, n.Int64()), nil
}

// BuildKey joins the namespace prefix and discriminator (subject or secret)
// into the store key. Prefixes are disjoint, so the same discriminator can
// never address a record in another namespace.
func BuildKey(ns domain.VerificationNamespace, discriminator string) string {
	return ns.KeyPrefix() + ":" + discriminator
}

// Stored value shapes. These mirror what previous deployments wrote, so the
// encoding is per namespace rather than one uniform envelope:
//
//	pwdreset:{email}      -> code (plain string)
//	invite:{token}        -> email (plain string)
//	emailchange:{userId}  -> {"new_email":..., "code":...}
//	signlink:{token}      -> {"userId":..., "craId":...}
type emailChangeValue struct {
	NewEmail string `json:"new_email"`
	Code     string `json:"code"`
}

type signatureLinkValue struct {
	UserID string `json:"userId"`
	CRAID  string `json:"craId"`
}

func encodeRecord(ns domain.VerificationNamespace, rec *domain.VerificationRecord) (string, error) {
	switch ns {
	case domain.NamespacePasswordReset:
		return rec.Secret, nil
	case domain.NamespaceInvite:
		return rec.Payload[domain.PayloadEmail], nil
	case domain.NamespaceEmailChange:
		raw, err := json.Marshal(emailChangeValue{
			NewEmail: rec.Payload[domain.PayloadNewEmail],
			Code:     rec.Secret,
		})
		if err != nil {
			return "", fmt.Errorf("encode email-change record: %w", err)
		}
		return string(raw), nil
	case domain.NamespaceSignatureLink:
		raw, err := json.Marshal(signatureLinkValue{
			UserID: rec.Payload[domain.PayloadUserID],
			CRAID:  rec.Payload[domain.PayloadCRAID],
		})
		if err != nil {
			return "", fmt.Errorf("encode signature-link record: %w", err)
		}
		return string(raw), nil
	}
	return "", fmt.Errorf("unknown namespace %d", ns)
}

func decodeRecord(ns domain.VerificationNamespace, raw string) (*domain.VerificationRecord, error) {
	switch ns {
	case domain.NamespacePasswordReset:
		return &domain.VerificationRecord{Secret: raw, Payload: map[string]string{}}, nil
	case domain.NamespaceInvite:
		return &domain.VerificationRecord{
			Payload: map[string]string{domain.PayloadEmail: raw},
		}, nil
	case domain.NamespaceEmailChange:
		var v emailChangeValue
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode email-change record: %w", err)
		}
		return &domain.VerificationRecord{
			Secret:  v.Code,
			Payload: map[string]string{domain.PayloadNewEmail: v.NewEmail},
		}, nil
	case domain.NamespaceSignatureLink:
		var v signatureLinkValue
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode signature-link record: %w", err)
		}
		return &domain.VerificationRecord{
			Payload: map[string]string{
				domain.PayloadUserID: v.UserID,
				domain.PayloadCRAID:  v.CRAID,
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown namespace %d", ns)
}
