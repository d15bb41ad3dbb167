package verification

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/horizons-hq/horizons-api/internal/domain"
	redisinfra "github.com/horizons-hq/horizons-api/internal/infrastructure/redis"
)

// Manager owns the lifecycle of ephemeral verification records: issue,
// validate, consume. Records live only in the KV store under a TTL; there is
// no in-process state, so a Manager is safe for concurrent use.
//
// A record is never mutated. Issuing over an existing key replaces it (last
// write wins: only the most recently requested code or link is honored), a
// failed validation leaves it untouched and retryable, and consumption
// deletes it.
type Manager struct {
	kv *redisinfra.Client
}

func NewManager(kv *redisinfra.Client) *Manager {
	return &Manager{kv: kv}
}

// Issue stores the record under its namespace key with the given TTL,
// replacing any prior record at that key. For secret-keyed namespaces
// (invite, signature link) the record's Secret is the discriminator;
// otherwise subject is.
func (m *Manager) Issue(ctx context.Context, ns domain.VerificationNamespace, subject string, rec *domain.VerificationRecord, ttl time.Duration) error {
	discriminator := subject
	if ns.SecretKeyed() {
		discriminator = rec.Secret
	}
	value, err := encodeRecord(ns, rec)
	if err != nil {
		return err
	}
	return m.kv.Set(ctx, BuildKey(ns, discriminator), value, ttl)
}

// Validate reads the record for (ns, subject) and checks the supplied secret
// against the stored one. Absent, expired and mismatched all collapse into
// domain.ErrInvalidVerification; anything else is an infrastructure failure.
// The record is left in place either way.
func (m *Manager) Validate(ctx context.Context, ns domain.VerificationNamespace, subject, suppliedSecret string) (*domain.VerificationRecord, error) {
	raw, err := m.kv.Get(ctx, BuildKey(ns, subject))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidVerification
		}
		return nil, err
	}
	rec, err := decodeRecord(ns, raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt record at %s: %w", BuildKey(ns, subject), err)
	}
	if subtle.ConstantTimeCompare([]byte(rec.Secret), []byte(suppliedSecret)) != 1 {
		return nil, domain.ErrInvalidVerification
	}
	return rec, nil
}

// Lookup resolves a secret-keyed record (invite, signature link) by its
// token. Possession of the token is the proof, so there is no separate
// secret comparison; a miss is domain.ErrInvalidVerification.
func (m *Manager) Lookup(ctx context.Context, ns domain.VerificationNamespace, token string) (*domain.VerificationRecord, error) {
	raw, err := m.kv.Get(ctx, BuildKey(ns, token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidVerification
		}
		return nil, err
	}
	rec, err := decodeRecord(ns, raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt record at %s: %w", BuildKey(ns, token), err)
	}
	rec.Secret = token
	return rec, nil
}

// Consume deletes the record. Call it only after the privileged action the
// record authorized has durably succeeded: deleting earlier would destroy a
// usable record on a transient downstream failure, skipping it would allow
// replay. Consuming an already-gone record is not an error.
func (m *Manager) Consume(ctx context.Context, ns domain.VerificationNamespace, discriminator string) error {
	return m.kv.Del(ctx, BuildKey(ns, discriminator))
}
