package flows

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/horizons-hq/horizons-api/internal/application/identity"
	"github.com/horizons-hq/horizons-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// inviteToken digs the issued token out of the store; invite records are
// keyed by the token itself.
func inviteToken(t *testing.T, mr *miniredis.Miniredis) string {
	t.Helper()
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, "invite:") {
			return strings.TrimPrefix(k, "invite:")
		}
	}
	t.Fatal("no invite record found")
	return ""
}

func TestInviteCreateOrReinvite_NewUser_EndToEnd(t *testing.T) {
	mgr, mr := newTestManager(t)
	ps := &mockProfileStore{}
	ml := &mockMailer{}
	ap := &mockAuthProvider{}

	ap.On("FindAccountByEmail", mock.Anything, "new@x.com").Return(nil, domain.ErrNotFound).Once()
	ap.On("CreateAccount", mock.Anything, "new@x.com").Return("u-new", nil)
	ps.On("Put", mock.Anything, mock.MatchedBy(func(p *domain.Profile) bool {
		return p.UserID == "u-new" && p.Role == domain.RoleConsultant && p.Active
	})).Return(nil)
	ml.On("SendEmail", "new@x.com", mock.Anything, mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "/invite?token=")
	})).Return(nil)

	svc := NewInviteService(mgr, ps, ap, ml, "https://app.horizons.example", 48*time.Hour)
	p, err := svc.CreateOrReinvite(context.Background(), domain.CreateUserRequest{
		Name: "Nadia", Email: "new@x.com", Role: "Consultant",
	})

	require.NoError(t, err)
	assert.Equal(t, "u-new", p.UserID)
	assert.Equal(t, domain.RoleConsultant, p.Role)

	token := inviteToken(t, mr)
	assert.Equal(t, "new@x.com", storedValue(t, mr, "invite:"+token))
	ap.AssertExpectations(t)
}

func TestInviteCreateOrReinvite_InvalidRole(t *testing.T) {
	mgr, _ := newTestManager(t)
	svc := NewInviteService(mgr, &mockProfileStore{}, &mockAuthProvider{}, &mockMailer{}, "https://app", 48*time.Hour)

	_, err := svc.CreateOrReinvite(context.Background(), domain.CreateUserRequest{
		Name: "X", Email: "x@x.com", Role: "superuser",
	})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestInviteCreateOrReinvite_ProfileWriteFails_RollsBackNewAccount(t *testing.T) {
	mgr, mr := newTestManager(t)
	ps := &mockProfileStore{}
	ap := &mockAuthProvider{}
	ap.On("FindAccountByEmail", mock.Anything, "new@x.com").Return(nil, domain.ErrNotFound)
	ap.On("CreateAccount", mock.Anything, "new@x.com").Return("u-new", nil)
	ap.On("DeleteAccount", mock.Anything, "u-new").Return(nil)
	ps.On("Put", mock.Anything, mock.Anything).Return(errors.New("dynamo write throttled"))

	svc := NewInviteService(mgr, ps, ap, &mockMailer{}, "https://app", 48*time.Hour)
	_, err := svc.CreateOrReinvite(context.Background(), domain.CreateUserRequest{
		Name: "Nadia", Email: "new@x.com", Role: "consultant",
	})

	require.Error(t, err)
	ap.AssertCalled(t, "DeleteAccount", mock.Anything, "u-new")
	assert.Empty(t, mr.Keys(), "no invite record when creation failed")
}

func TestInviteCreateOrReinvite_MailFailure_IsNotFatal(t *testing.T) {
	mgr, mr := newTestManager(t)
	ps := &mockProfileStore{}
	ml := &mockMailer{}
	ap := &mockAuthProvider{}
	ap.On("FindAccountByEmail", mock.Anything, "new@x.com").Return(&domain.Account{UserID: "u-old", Email: "new@x.com"}, nil)
	ps.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendEmail", "new@x.com", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := NewInviteService(mgr, ps, ap, ml, "https://app", 48*time.Hour)
	p, err := svc.CreateOrReinvite(context.Background(), domain.CreateUserRequest{
		Name: "Nadia", Email: "new@x.com", Role: "manager",
	})

	// Admin can re-invite; the record stays so the original link still works.
	require.NoError(t, err)
	assert.Equal(t, "u-old", p.UserID)
	assert.NotEmpty(t, inviteToken(t, mr))
}

func TestInviteComplete_EndToEnd_SingleUse(t *testing.T) {
	mgr, mr := newTestManager(t)
	ps := &mockProfileStore{}
	ml := &mockMailer{}
	ap := &mockAuthProvider{}
	ap.On("FindAccountByEmail", mock.Anything, "new@x.com").Return(nil, domain.ErrNotFound).Once()
	ap.On("CreateAccount", mock.Anything, "new@x.com").Return("u-new", nil)
	ps.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendEmail", "new@x.com", mock.Anything, mock.Anything).Return(nil)

	svc := NewInviteService(mgr, ps, ap, ml, "https://app", 48*time.Hour)
	ctx := context.Background()
	_, err := svc.CreateOrReinvite(ctx, domain.CreateUserRequest{Name: "Nadia", Email: "new@x.com", Role: "consultant"})
	require.NoError(t, err)
	token := inviteToken(t, mr)

	ap.On("FindAccountByEmail", mock.Anything, "new@x.com").Return(&domain.Account{UserID: "u-new", Email: "new@x.com"}, nil)
	ap.On("SetPassword", mock.Anything, "u-new", "S3cret!!").Return(nil)
	ap.On("SetEmail", mock.Anything, "u-new", "new@x.com", true).Return(nil)
	ps.On("Get", mock.Anything, "u-new").Return(&domain.Profile{UserID: "u-new", Email: "new@x.com"}, nil)
	ap.On("Authenticate", mock.Anything, "new@x.com", "S3cret!!").Return(&identity.AuthResult{Bearer: "jwt"}, nil)

	res, err := svc.Complete(ctx, "new@x.com", token, "S3cret!!")
	require.NoError(t, err)
	require.NotNil(t, res.Auth)
	assert.Equal(t, "jwt", res.Auth.Bearer)
	assert.Equal(t, "u-new", res.Profile.UserID)

	// The token is burned.
	_, err = svc.Complete(ctx, "new@x.com", token, "S3cret!!")
	assert.True(t, errors.Is(err, domain.ErrInvalidVerification))
}

func TestInviteComplete_EmailMismatch(t *testing.T) {
	mgr, mr := newTestManager(t)
	ps := &mockProfileStore{}
	ml := &mockMailer{}
	ap := &mockAuthProvider{}
	ap.On("FindAccountByEmail", mock.Anything, "new@x.com").Return(&domain.Account{UserID: "u1"}, nil)
	ps.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := NewInviteService(mgr, ps, ap, ml, "https://app", 48*time.Hour)
	ctx := context.Background()
	_, err := svc.CreateOrReinvite(ctx, domain.CreateUserRequest{Name: "N", Email: "new@x.com", Role: "consultant"})
	require.NoError(t, err)
	token := inviteToken(t, mr)

	_, err = svc.Complete(ctx, "other@x.com", token, "S3cret!!")
	assert.True(t, errors.Is(err, domain.ErrInvalidVerification))
	ap.AssertNotCalled(t, "SetPassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestInviteComplete_SignInFailure_DegradesGracefully(t *testing.T) {
	mgr, mr := newTestManager(t)
	ps := &mockProfileStore{}
	ml := &mockMailer{}
	ap := &mockAuthProvider{}
	ap.On("FindAccountByEmail", mock.Anything, "new@x.com").Return(&domain.Account{UserID: "u1"}, nil)
	ps.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := NewInviteService(mgr, ps, ap, ml, "https://app", 48*time.Hour)
	ctx := context.Background()
	_, err := svc.CreateOrReinvite(ctx, domain.CreateUserRequest{Name: "N", Email: "new@x.com", Role: "consultant"})
	require.NoError(t, err)
	token := inviteToken(t, mr)

	ap.On("SetPassword", mock.Anything, "u1", "S3cret!!").Return(nil)
	ap.On("SetEmail", mock.Anything, "u1", "new@x.com", true).Return(nil)
	ps.On("Get", mock.Anything, "u1").Return(&domain.Profile{UserID: "u1"}, nil)
	ap.On("Authenticate", mock.Anything, "new@x.com", "S3cret!!").Return(nil, domain.ErrUnauthorized)

	res, err := svc.Complete(ctx, "new@x.com", token, "S3cret!!")
	require.NoError(t, err, "password set succeeded, sign-in failure is not fatal")
	assert.Nil(t, res.Auth)
	assert.Equal(t, "u1", res.Profile.UserID)
}
