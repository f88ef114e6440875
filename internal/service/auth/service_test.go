package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/metabridge-api/internal/model"
	"github.com/jwalitptl/metabridge-api/internal/repository/repotest"
	"github.com/jwalitptl/metabridge-api/internal/service/notification"
	"github.com/jwalitptl/metabridge-api/internal/service/otp"
	"github.com/jwalitptl/metabridge-api/pkg/auth"
	apperrors "github.com/jwalitptl/metabridge-api/pkg/errors"
	"github.com/jwalitptl/metabridge-api/pkg/security"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	sent  []model.Delivery
	codes []string
}

func (d *recordingDispatcher) DispatchOTP(_ context.Context, to model.Delivery, code string) notification.Report {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, to)
	d.codes = append(d.codes, code)
	sms := notification.Outcome{Channel: notification.ChannelSMS, Status: notification.StatusSkipped}
	if to.Phone != "" {
		sms.Status = notification.StatusDelivered
	}
	return notification.Report{
		Email: notification.Outcome{Channel: notification.ChannelEmail, Status: notification.StatusDelivered},
		SMS:   sms,
	}
}

type fixture struct {
	svc        *Service
	repo       *repotest.CredentialRepository
	dispatcher *recordingDispatcher
	jwt        auth.JWTService
	now        time.Time
}

func newFixture(t *testing.T, ut model.UserType) *fixture {
	t.Helper()
	f := &fixture{
		repo:       repotest.NewCredentialRepository(ut),
		dispatcher: &recordingDispatcher{},
		jwt:        auth.NewJWTService("test-secret"),
		now:        time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.svc = NewService(f.repo, Deps{
		Hasher:     security.NewBcryptHasher(bcrypt.MinCost),
		Issuer:     otp.NewIssuer(clock),
		Dispatcher: f.dispatcher,
		JWT:        f.jwt,
		Logger:     zerolog.Nop(),
		Now:        clock,
	})
	return f
}

func patientSignup(email string) *model.PatientSignupRequest {
	return &model.PatientSignupRequest{
		FirstName: "Pat", LastName: "Lee", Email: email, Password: "password123",
	}
}

func (f *fixture) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.dispatcher.codes)
	return f.dispatcher.codes[len(f.dispatcher.codes)-1]
}

func TestSignup_TokenBoundToStoredRecord(t *testing.T) {
	f := newFixture(t, model.PatientType)
	ctx := context.Background()

	session, err := f.svc.Signup(ctx, patientSignup("pat@example.com"))
	require.NoError(t, err)

	claims, err := f.jwt.Validate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Profile.GetID(), claims.ID)
	assert.Equal(t, "pat@example.com", claims.Email)
	assert.Equal(t, "patient", claims.UserType)

	stored, err := f.repo.GetProfileByEmail(ctx, "pat@example.com")
	require.NoError(t, err)
	assert.Equal(t, stored.GetID(), claims.ID)

	_, err = f.svc.Login(ctx, "pat@example.com", "password123")
	assert.NoError(t, err, "fresh signup must be able to log in")
}

func TestSignup_DuplicateEmail(t *testing.T) {
	f := newFixture(t, model.DoctorType)
	ctx := context.Background()
	req := &model.DoctorSignupRequest{Name: "Dr. A", Email: "doc@example.com", Password: "password123"}

	_, err := f.svc.Signup(ctx, req)
	require.NoError(t, err)

	other := &model.DoctorSignupRequest{Name: "Dr. B", Email: "doc@example.com", Password: "different-pw"}
	_, err = f.svc.Signup(ctx, other)
	require.ErrorIs(t, err, apperrors.ErrDuplicateUser)
	assert.Equal(t, "Doctor already exists", apperrors.As(err).Message)
}

func TestSignup_InvalidProfile(t *testing.T) {
	f := newFixture(t, model.PatientType)
	req := patientSignup("pat@example.com")
	req.DateOfBirth = "not-a-date"

	_, err := f.svc.Signup(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	exists, _ := f.repo.ExistsByEmail(context.Background(), "pat@example.com")
	assert.False(t, exists, "nothing is written on validation failure")
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t, model.DoctorType)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, &model.DoctorSignupRequest{Name: "Dr. A", Email: "doc@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "nobody@example.com", "password123")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	assert.Equal(t, "Doctor not found", apperrors.As(err).Message)

	_, err = f.svc.Login(ctx, "doc@example.com", "wrong-password")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	assert.Equal(t, "Invalid credentials", apperrors.As(err).Message)

	code, _ := f.repo.PendingOTP("doc@example.com")
	assert.Empty(t, code, "no otp is generated for a failed password check")
	assert.Empty(t, f.dispatcher.codes, "no otp is sent for a failed password check")
}

func TestLogin_IssuesAndDispatchesOTP(t *testing.T) {
	f := newFixture(t, model.PatientType)
	ctx := context.Background()
	req := patientSignup("pat@example.com")
	req.Phone = "+15550001111"
	_, err := f.svc.Signup(ctx, req)
	require.NoError(t, err)

	report, err := f.svc.Login(ctx, "pat@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, notification.StatusDelivered, report.SMS.Status)

	code, expiry := f.repo.PendingOTP("pat@example.com")
	assert.Regexp(t, `^[0-9]{6}$`, code)
	require.NotNil(t, expiry)
	assert.True(t, f.now.Add(5*time.Minute).Equal(*expiry))
	assert.Equal(t, []model.Delivery{{Email: "pat@example.com", Phone: "+15550001111"}}, f.dispatcher.sent)
	assert.Equal(t, code, f.lastCode(t))
}

func TestLogin_Throttled(t *testing.T) {
	f := newFixture(t, model.PatientType)
	f.svc.deps.Limiter = otp.NewMemoryLimiter(time.Minute, 1)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, patientSignup("pat@example.com"))
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "pat@example.com", "password123")
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, "pat@example.com", "password123")
	require.ErrorIs(t, err, apperrors.ErrRateLimited)
	assert.Len(t, f.dispatcher.codes, 1)
}

func TestVerifyOTP_OrderOfChecks(t *testing.T) {
	f := newFixture(t, model.PatientType)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, patientSignup("pat@example.com"))
	require.NoError(t, err)

	_, err = f.svc.VerifyOTP(ctx, "nobody@example.com", "123456")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	_, err = f.svc.VerifyOTP(ctx, "pat@example.com", "123456")
	assert.ErrorIs(t, err, apperrors.ErrOtpNotRequested)

	_, err = f.svc.Login(ctx, "pat@example.com", "password123")
	require.NoError(t, err)
	code := f.lastCode(t)

	f.now = f.now.Add(6 * time.Minute)
	_, err = f.svc.VerifyOTP(ctx, "pat@example.com", "000000")
	assert.ErrorIs(t, err, apperrors.ErrOtpExpired, "expiry is checked before the code")
	_, err = f.svc.VerifyOTP(ctx, "pat@example.com", code)
	assert.ErrorIs(t, err, apperrors.ErrOtpExpired)
}

func TestVerifyOTP_ExpiryBoundary(t *testing.T) {
	for _, tt := range []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{"exactly at expiry", 5 * time.Minute, nil},
		{"one second after expiry", 5*time.Minute + time.Second, apperrors.ErrOtpExpired},
		{"a day after expiry", 25 * time.Hour, apperrors.ErrOtpExpired},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, model.PatientType)
			ctx := context.Background()
			_, err := f.svc.Signup(ctx, patientSignup("pat@example.com"))
			require.NoError(t, err)
			_, err = f.svc.Login(ctx, "pat@example.com", "password123")
			require.NoError(t, err)

			f.now = f.now.Add(tt.elapsed)
			_, err = f.svc.VerifyOTP(ctx, "pat@example.com", f.lastCode(t))
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestVerifyOTP_ExpiredCodeIsNeverForgotten(t *testing.T) {
	f := newFixture(t, model.PatientType)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, patientSignup("pat@example.com"))
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, "pat@example.com", "password123")
	require.NoError(t, err)
	code := f.lastCode(t)

	for _, elapsed := range []time.Duration{time.Hour, 25 * time.Hour, 30 * 24 * time.Hour} {
		f.now = f.now.Add(elapsed)
		_, err = f.svc.VerifyOTP(ctx, "pat@example.com", code)
		assert.ErrorIs(t, err, apperrors.ErrOtpExpired, "after %s", elapsed)
	}

	stored, expiry := f.repo.PendingOTP("pat@example.com")
	assert.Equal(t, code, stored)
	assert.NotNil(t, expiry)
}

func TestVerifyOTP_SingleUse(t *testing.T) {
	f := newFixture(t, model.DoctorType)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, &model.DoctorSignupRequest{Name: "Dr. A", Email: "doc@example.com", Password: "password123"})
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, "doc@example.com", "password123")
	require.NoError(t, err)
	code := f.lastCode(t)

	session, err := f.svc.VerifyOTP(ctx, "doc@example.com", code)
	require.NoError(t, err)
	claims, err := f.jwt.Validate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "doc@example.com", claims.Email)
	assert.Equal(t, "Dr. A", session.Profile.(*model.Doctor).Name)

	pending, expiry := f.repo.PendingOTP("doc@example.com")
	assert.Empty(t, pending)
	assert.Nil(t, expiry)

	_, err = f.svc.VerifyOTP(ctx, "doc@example.com", code)
	assert.ErrorIs(t, err, apperrors.ErrOtpNotRequested)
}

func TestVerifyOTP_LastWriteWins(t *testing.T) {
	f := newFixture(t, model.PatientType)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, patientSignup("pat@example.com"))
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "pat@example.com", "password123")
	require.NoError(t, err)
	first := f.lastCode(t)

	var second string
	for {
		_, err = f.svc.Login(ctx, "pat@example.com", "password123")
		require.NoError(t, err)
		if second = f.lastCode(t); second != first {
			break
		}
	}

	_, err = f.svc.VerifyOTP(ctx, "pat@example.com", first)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOtp)

	_, err = f.svc.VerifyOTP(ctx, "pat@example.com", second)
	assert.NoError(t, err)
}

func TestVerifyOTP_WrongCodeKeepsPendingOTP(t *testing.T) {
	f := newFixture(t, model.PatientType)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, patientSignup("pat@example.com"))
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, "pat@example.com", "password123")
	require.NoError(t, err)
	code := f.lastCode(t)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = f.svc.VerifyOTP(ctx, "pat@example.com", wrong)
	require.ErrorIs(t, err, apperrors.ErrInvalidOtp)
	assert.Equal(t, "Invalid OTP", apperrors.As(err).Message)

	_, err = f.svc.VerifyOTP(ctx, "pat@example.com", code)
	assert.NoError(t, err)
}

func TestRepositoryFailureIsInternal(t *testing.T) {
	f := newFixture(t, model.PatientType)
	f.repo.Err = errors.New("connection reset")

	_, err := f.svc.Login(context.Background(), "pat@example.com", "password123")
	require.ErrorIs(t, err, apperrors.ErrInternal)
	assert.Equal(t, "Server error", apperrors.As(err).Message)
}

func TestProfile(t *testing.T) {
	f := newFixture(t, model.PatientType)
	ctx := context.Background()
	session, err := f.svc.Signup(ctx, patientSignup("pat@example.com"))
	require.NoError(t, err)

	p, err := f.svc.Profile(ctx, session.Profile.GetID())
	require.NoError(t, err)
	assert.Equal(t, "pat@example.com", p.GetEmail())

	_, err = f.svc.Profile(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
