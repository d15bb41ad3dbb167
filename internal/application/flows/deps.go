package flows

import (
	"context"

	"github.com/horizons-hq/horizons-api/internal/application/identity"
	"github.com/horizons-hq/horizons-api/internal/domain"
)

// AuthProvider is the authentication collaborator the flows drive. It is the
// source of truth for credentials and email addresses.
type AuthProvider interface {
	CreateAccount(ctx context.Context, email string) (string, error)
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	SetPassword(ctx context.Context, userID, password string) error
	SetEmail(ctx context.Context, userID, email string, confirmed bool) error
	DeleteAccount(ctx context.Context, userID string) error
	Authenticate(ctx context.Context, email, password string) (*identity.AuthResult, error)
}

// ProfileStore is the minimal interface the flows require from the profiles
// table.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	Put(ctx context.Context, p *domain.Profile) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// Mailer sends the out-of-band notifications that carry codes and links.
type Mailer interface {
	SendEmail(to, subject, body string) error
}
