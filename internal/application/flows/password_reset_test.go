package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/horizons-hq/horizons-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPasswordResetRequest_UnknownEmail_SucceedsWithoutIssuing(t *testing.T) {
	mgr, mr := newTestManager(t)
	ps := &mockProfileStore{}
	ps.On("GetByEmail", mock.Anything, "ghost@x.com").Return(nil, domain.ErrNotFound)

	svc := NewPasswordResetService(mgr, ps, &mockAuthProvider{}, &mockMailer{}, 15*time.Minute)
	err := svc.Request(context.Background(), "ghost@x.com")

	// Same success shape as for an existing account, and no record written.
	require.NoError(t, err)
	assert.False(t, mr.Exists("pwdreset:ghost@x.com"))
}

func TestPasswordResetRequest_HappyPath_IssuesAndMails(t *testing.T) {
	mgr, mr := newTestManager(t)
	ps := &mockProfileStore{}
	ml := &mockMailer{}
	ps.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.Profile{UserID: "u1", Email: "a@x.com"}, nil)
	ml.On("SendEmail", "a@x.com", mock.Anything, mock.Anything).Return(nil)

	svc := NewPasswordResetService(mgr, ps, &mockAuthProvider{}, ml, 15*time.Minute)
	require.NoError(t, svc.Request(context.Background(), "a@x.com"))

	code := storedValue(t, mr, "pwdreset:a@x.com")
	assert.Len(t, code, 6)
	ml.AssertExpectations(t)
}

func TestPasswordResetRequest_SendFailure_DeletesRecord(t *testing.T) {
	mgr, mr := newTestManager(t)
	ps := &mockProfileStore{}
	ml := &mockMailer{}
	ps.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.Profile{UserID: "u1", Email: "a@x.com"}, nil)
	ml.On("SendEmail", "a@x.com", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := NewPasswordResetService(mgr, ps, &mockAuthProvider{}, ml, 15*time.Minute)
	err := svc.Request(context.Background(), "a@x.com")

	require.Error(t, err)
	assert.False(t, mr.Exists("pwdreset:a@x.com"), "dead record must not linger after a failed send")
}

func TestPasswordResetComplete_HappyPath_ConsumesRecord(t *testing.T) {
	mgr, mr := newTestManager(t)
	ps := &mockProfileStore{}
	ml := &mockMailer{}
	ap := &mockAuthProvider{}
	ps.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.Profile{UserID: "u1", Email: "a@x.com"}, nil)
	ml.On("SendEmail", "a@x.com", mock.Anything, mock.Anything).Return(nil)
	ap.On("FindAccountByEmail", mock.Anything, "a@x.com").Return(&domain.Account{UserID: "u1", Email: "a@x.com"}, nil)
	ap.On("SetPassword", mock.Anything, "u1", "N3wpass!").Return(nil)

	svc := NewPasswordResetService(mgr, ps, ap, ml, 15*time.Minute)
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, "a@x.com"))
	code := storedValue(t, mr, "pwdreset:a@x.com")

	require.NoError(t, svc.Verify(ctx, "a@x.com", code))
	require.NoError(t, svc.Complete(ctx, "a@x.com", code, "N3wpass!"))

	// Single use: the same code is dead now.
	err := svc.Complete(ctx, "a@x.com", code, "N3wpass!")
	assert.True(t, errors.Is(err, domain.ErrInvalidVerification))
	ap.AssertExpectations(t)
}

func TestPasswordResetComplete_WrongCode_GenericErrorAndNoPasswordChange(t *testing.T) {
	mgr, mr := newTestManager(t)
	ps := &mockProfileStore{}
	ml := &mockMailer{}
	ap := &mockAuthProvider{}
	ps.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.Profile{UserID: "u1"}, nil)
	ml.On("SendEmail", "a@x.com", mock.Anything, mock.Anything).Return(nil)

	svc := NewPasswordResetService(mgr, ps, ap, ml, 15*time.Minute)
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, "a@x.com"))

	err := svc.Complete(ctx, "a@x.com", "000000", "N3wpass!")
	assert.True(t, errors.Is(err, domain.ErrInvalidVerification))
	ap.AssertNotCalled(t, "SetPassword", mock.Anything, mock.Anything, mock.Anything)

	// The record survives a wrong guess.
	code := storedValue(t, mr, "pwdreset:a@x.com")
	assert.Len(t, code, 6)
}

func TestPasswordResetComplete_SetPasswordFails_RecordStaysUsable(t *testing.T) {
	mgr, mr := newTestManager(t)
	ps := &mockProfileStore{}
	ml := &mockMailer{}
	ap := &mockAuthProvider{}
	ps.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.Profile{UserID: "u1"}, nil)
	ml.On("SendEmail", "a@x.com", mock.Anything, mock.Anything).Return(nil)
	ap.On("FindAccountByEmail", mock.Anything, "a@x.com").Return(&domain.Account{UserID: "u1"}, nil)
	ap.On("SetPassword", mock.Anything, "u1", "N3wpass!").Return(errors.New("auth provider down")).Once()
	ap.On("SetPassword", mock.Anything, "u1", "N3wpass!").Return(nil).Once()

	svc := NewPasswordResetService(mgr, ps, ap, ml, 15*time.Minute)
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, "a@x.com"))
	code := storedValue(t, mr, "pwdreset:a@x.com")

	// Downstream failure must not consume the record.
	require.Error(t, svc.Complete(ctx, "a@x.com", code, "N3wpass!"))
	require.NoError(t, svc.Complete(ctx, "a@x.com", code, "N3wpass!"))
}

func TestPasswordResetRequest_Reissue_SupersedesOldCode(t *testing.T) {
	mgr, mr := newTestManager(t)
	ps := &mockProfileStore{}
	ml := &mockMailer{}
	ps.On("GetByEmail", mock.Anything, "a@x.com").Return(&domain.Profile{UserID: "u1"}, nil)
	ml.On("SendEmail", "a@x.com", mock.Anything, mock.Anything).Return(nil)

	svc := NewPasswordResetService(mgr, ps, &mockAuthProvider{}, ml, 15*time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Request(ctx, "a@x.com"))
	first := storedValue(t, mr, "pwdreset:a@x.com")
	require.NoError(t, svc.Request(ctx, "a@x.com"))
	second := storedValue(t, mr, "pwdreset:a@x.com")

	if first != second {
		err := svc.Verify(ctx, "a@x.com", first)
		assert.True(t, errors.Is(err, domain.ErrInvalidVerification))
	}
	assert.NoError(t, svc.Verify(ctx, "a@x.com", second))
}
