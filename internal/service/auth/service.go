package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/metabridge-api/internal/model"
	"github.com/jwalitptl/metabridge-api/internal/repository"
	"github.com/jwalitptl/metabridge-api/internal/service/audit"
	"github.com/jwalitptl/metabridge-api/internal/service/notification"
	"github.com/jwalitptl/metabridge-api/internal/service/otp"
	"github.com/jwalitptl/metabridge-api/pkg/auth"
	apperrors "github.com/jwalitptl/metabridge-api/pkg/errors"
	"github.com/jwalitptl/metabridge-api/pkg/metrics"
	"github.com/jwalitptl/metabridge-api/pkg/security"
)

const defaultTokenTTL = 24 * time.Hour

// Session is an authenticated identity: the stored profile and a signed token for it.
type Session struct {
	Profile model.Profile
	Token   string
}

// Deps are the collaborators shared by every user type.
type Deps struct {
	Hasher     security.PasswordHasher
	Issuer     *otp.Issuer
	Limiter    otp.Limiter
	Dispatcher notification.Dispatcher
	JWT        auth.JWTService
	Auditor    *audit.Service
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
	TokenTTL   time.Duration
	Now        func() time.Time
}

// Service runs signup, password login with OTP issuance, and OTP verification for one user type.
type Service struct {
	userType model.UserType
	repo     repository.CredentialRepository
	deps     Deps
	logger   zerolog.Logger
}

func NewService(repo repository.CredentialRepository, deps Deps) *Service {
	if deps.TokenTTL <= 0 {
		deps.TokenTTL = defaultTokenTTL
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Issuer == nil {
		deps.Issuer = otp.NewIssuer(deps.Now)
	}
	if deps.Limiter == nil {
		deps.Limiter = otp.NewUnlimited()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNop()
	}
	ut := repo.UserType()
	return &Service{
		userType: ut,
		repo:     repo,
		deps:     deps,
		logger:   deps.Logger.With().Str("user_type", ut.Name).Logger(),
	}
}

func (s *Service) UserType() model.UserType {
	return s.userType
}

// Signup stores a new record and mints a token straight away. No OTP step is involved.
func (s *Service) Signup(ctx context.Context, req model.SignupRequest) (session *Session, err error) {
	defer func() {
		s.deps.Metrics.Signups.WithLabelValues(s.userType.Name, metrics.Result(err)).Inc()
	}()

	profile, err := req.ToProfile()
	if err != nil {
		return nil, apperrors.NewValidation(err.Error(), err)
	}

	exists, err := s.repo.ExistsByEmail(ctx, profile.GetEmail())
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if exists {
		s.audit(ctx, audit.ActionSignup, 0, profile.GetEmail(), apperrors.CodeDuplicateUser)
		return nil, s.duplicate()
	}

	hash, err := s.deps.Hasher.Hash(req.GetPassword())
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to hash password: %w", err))
	}

	created, err := s.repo.Create(ctx, profile, hash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.audit(ctx, audit.ActionSignup, 0, profile.GetEmail(), apperrors.CodeDuplicateUser)
			return nil, s.duplicate()
		}
		return nil, apperrors.NewInternal(err)
	}

	token, err := s.mint(created)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, audit.ActionSignup, created.GetID(), created.GetEmail(), "")
	return &Session{Profile: created, Token: token}, nil
}

// Login checks the password and, only if it matches, issues and dispatches a fresh OTP.
// A newer OTP replaces any pending one.
func (s *Service) Login(ctx context.Context, email, password string) (report notification.Report, err error) {
	defer func() {
		s.deps.Metrics.Logins.WithLabelValues(s.userType.Name, metrics.Result(err)).Inc()
	}()

	cred, err := s.credential(ctx, email)
	if err != nil {
		s.auditErr(ctx, audit.ActionLogin, email, err)
		return report, err
	}

	if err := s.deps.Hasher.Compare(cred.PasswordHash, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			err = apperrors.New(apperrors.ErrInvalidCredentials, "Invalid credentials")
			s.auditErr(ctx, audit.ActionLogin, email, err)
			return report, err
		}
		return report, apperrors.NewInternal(fmt.Errorf("failed to compare password: %w", err))
	}

	if !s.deps.Limiter.Allow(ctx, s.userType.Name+":"+cred.Email) {
		err = apperrors.New(apperrors.ErrRateLimited, "Too many OTP requests, please try again later")
		s.auditErr(ctx, audit.ActionLogin, email, err)
		return report, err
	}

	code, err := s.deps.Issuer.Issue()
	if err != nil {
		return report, apperrors.NewInternal(err)
	}
	if err := s.repo.SetOTP(ctx, cred.Email, code.Value, code.ExpiresAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return report, s.notFound()
		}
		return report, apperrors.NewInternal(err)
	}
	s.deps.Metrics.OTPsIssued.WithLabelValues(s.userType.Name).Inc()

	phone := ""
	if cred.Phone != nil {
		phone = *cred.Phone
	}
	report = s.deps.Dispatcher.DispatchOTP(ctx, model.Delivery{Email: cred.Email, Phone: phone}, code.Value)

	s.logger.Info().
		Int64("user_id", cred.ID).
		Str("email_delivery", string(report.Email.Status)).
		Str("sms_delivery", string(report.SMS.Status)).
		Time("otp_expires_at", code.ExpiresAt).
		Msg("otp issued")
	s.audit(ctx, audit.ActionLogin, cred.ID, cred.Email, "")
	return report, nil
}

// VerifyOTP checks existence, then a pending code, then expiry, then the code itself.
// On success the pending code is cleared and a token minted.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (session *Session, err error) {
	defer func() {
		s.deps.Metrics.Verifications.WithLabelValues(s.userType.Name, metrics.Result(err)).Inc()
		if err != nil {
			s.auditErr(ctx, audit.ActionVerifyOTP, email, err)
		}
	}()

	cred, err := s.credential(ctx, email)
	if err != nil {
		return nil, err
	}

	if !cred.HasPendingOTP() {
		return nil, apperrors.New(apperrors.ErrOtpNotRequested, "OTP not requested")
	}
	if (otp.Code{Value: *cred.OTP, ExpiresAt: *cred.OTPExpiry}).Expired(s.deps.Now()) {
		return nil, apperrors.New(apperrors.ErrOtpExpired, "OTP expired")
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(*cred.OTP)) != 1 {
		return nil, apperrors.New(apperrors.ErrInvalidOtp, "Invalid OTP")
	}

	consumed, err := s.repo.ConsumeOTP(ctx, cred.Email, *cred.OTP)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if !consumed {
		// a concurrent login replaced the code, or a concurrent verify used it
		return nil, apperrors.New(apperrors.ErrInvalidOtp, "Invalid OTP")
	}

	profile, err := s.Profile(ctx, cred.ID)
	if err != nil {
		return nil, err
	}
	token, err := s.mint(profile)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, audit.ActionVerifyOTP, cred.ID, cred.Email, "")
	return &Session{Profile: profile, Token: token}, nil
}

// Profile loads the stored record for an authenticated id.
func (s *Service) Profile(ctx context.Context, id int64) (model.Profile, error) {
	profile, err := s.repo.GetProfileByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.notFound()
		}
		return nil, apperrors.NewInternal(err)
	}
	return profile, nil
}

func (s *Service) credential(ctx context.Context, email string) (*model.Credential, error) {
	cred, err := s.repo.GetCredential(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.notFound()
		}
		return nil, apperrors.NewInternal(err)
	}
	return cred, nil
}

func (s *Service) mint(p model.Profile) (string, error) {
	token, err := s.deps.JWT.Generate(auth.Identity{
		ID:       p.GetID(),
		Email:    p.GetEmail(),
		UserType: s.userType.Name,
	}, s.deps.TokenTTL)
	if err != nil {
		return "", apperrors.NewInternal(fmt.Errorf("failed to generate token: %w", err))
	}
	s.deps.Metrics.TokensIssued.WithLabelValues(s.userType.Name).Inc()
	return token, nil
}

func (s *Service) duplicate() error {
	return apperrors.New(apperrors.ErrDuplicateUser, s.userType.Label+" already exists")
}

func (s *Service) notFound() error {
	return apperrors.New(apperrors.ErrUserNotFound, s.userType.Label+" not found")
}

func (s *Service) audit(ctx context.Context, action string, id int64, email string, reason apperrors.Code) {
	outcome := audit.OutcomeSuccess
	if reason != "" {
		outcome = audit.OutcomeFailure
	}
	s.deps.Auditor.Log(ctx, audit.Event{
		Action:   action,
		UserType: s.userType.Name,
		UserID:   id,
		Email:    email,
		Outcome:  outcome,
		Reason:   string(reason),
	})
}

func (s *Service) auditErr(ctx context.Context, action, email string, err error) {
	s.audit(ctx, action, 0, email, apperrors.As(err).Code)
}
