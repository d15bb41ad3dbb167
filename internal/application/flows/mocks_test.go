package flows

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/horizons-hq/horizons-api/internal/application/identity"
	"github.com/horizons-hq/horizons-api/internal/domain"
	redisinfra "github.com/horizons-hq/horizons-api/internal/infrastructure/redis"
	"github.com/horizons-hq/horizons-api/internal/verification"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newTestManager backs the verification manager with miniredis so flow tests
// exercise real issue/validate/consume behavior.
func newTestManager(t *testing.T) (*verification.Manager, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	kv := redisinfra.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = kv.Close() })
	return verification.NewManager(kv), mr
}

type mockAuthProvider struct{ mock.Mock }

func (m *mockAuthProvider) CreateAccount(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}
func (m *mockAuthProvider) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAuthProvider) SetPassword(ctx context.Context, userID, password string) error {
	return m.Called(ctx, userID, password).Error(0)
}
func (m *mockAuthProvider) SetEmail(ctx context.Context, userID, email string, confirmed bool) error {
	return m.Called(ctx, userID, email, confirmed).Error(0)
}
func (m *mockAuthProvider) DeleteAccount(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *mockAuthProvider) Authenticate(ctx context.Context, email, password string) (*identity.AuthResult, error) {
	args := m.Called(ctx, email, password)
	if r, _ := args.Get(0).(*identity.AuthResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockProfileStore struct{ mock.Mock }

func (m *mockProfileStore) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockProfileStore) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	args := m.Called(ctx, email)
	if p, _ := args.Get(0).(*domain.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockProfileStore) Put(ctx context.Context, p *domain.Profile) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockProfileStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

// storedValue reads the raw record value straight from miniredis.
func storedValue(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
