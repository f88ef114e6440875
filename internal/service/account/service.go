package account

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jwalitptl/metabridge-api/internal/model"
	"github.com/jwalitptl/metabridge-api/internal/repository"
	"github.com/jwalitptl/metabridge-api/internal/service/audit"
	"github.com/jwalitptl/metabridge-api/pkg/auth"
	apperrors "github.com/jwalitptl/metabridge-api/pkg/errors"
	"github.com/jwalitptl/metabridge-api/pkg/metrics"
	"github.com/jwalitptl/metabridge-api/pkg/security"
)

const (
	defaultTokenTTL = time.Hour
	userType        = "user"
)

// LoginResult is returned by a successful direct login.
type LoginResult struct {
	Token string
	User  model.UserSummary
}

// Service handles the unified users table: role-tagged registration and password-only login.
type Service struct {
	repo     repository.UserRepository
	hasher   security.PasswordHasher
	jwt      auth.JWTService
	auditor  *audit.Service
	metrics  *metrics.Metrics
	tokenTTL time.Duration
}

func NewService(repo repository.UserRepository, hasher security.PasswordHasher, jwt auth.JWTService, auditor *audit.Service, m *metrics.Metrics, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Service{
		repo:     repo,
		hasher:   hasher,
		jwt:      jwt,
		auditor:  auditor,
		metrics:  m,
		tokenTTL: tokenTTL,
	}
}

func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (user *model.User, err error) {
	defer func() {
		s.metrics.Signups.WithLabelValues(userType, metrics.Result(err)).Inc()
		s.log(ctx, audit.ActionRegister, user, req.Email, err)
	}()

	exists, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if exists {
		return nil, s.duplicate()
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to hash password: %w", err))
	}

	user = &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, s.duplicate()
		}
		return nil, apperrors.NewInternal(err)
	}
	return user, nil
}

// Login checks the password and mints a role-carrying token. There is no OTP step here.
func (s *Service) Login(ctx context.Context, email, password string) (result *LoginResult, err error) {
	var user *model.User
	defer func() {
		s.metrics.Logins.WithLabelValues(userType, metrics.Result(err)).Inc()
		s.log(ctx, audit.ActionDirectLogin, user, email, err)
	}()

	user, err = s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.New(apperrors.ErrUserNotFound, "User not found. Please register.").
				WithStatus(http.StatusNotFound)
		}
		return nil, apperrors.NewInternal(err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return nil, apperrors.New(apperrors.ErrInvalidCredentials, "Invalid password")
		}
		return nil, apperrors.NewInternal(fmt.Errorf("failed to compare password: %w", err))
	}

	token, err := s.jwt.Generate(auth.Identity{ID: user.ID, Email: user.Email, Role: user.Role}, s.tokenTTL)
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to generate token: %w", err))
	}
	s.metrics.TokensIssued.WithLabelValues(userType).Inc()

	return &LoginResult{
		Token: token,
		User:  model.UserSummary{ID: user.ID, Name: user.Name, Role: user.Role},
	}, nil
}

func (s *Service) duplicate() error {
	return apperrors.New(apperrors.ErrDuplicateUser, "User already exists. Please login.")
}

func (s *Service) log(ctx context.Context, action string, user *model.User, email string, err error) {
	e := audit.Event{Action: action, UserType: userType, Email: email, Outcome: audit.OutcomeSuccess}
	if user != nil {
		e.UserID = user.ID
	}
	if err != nil {
		e.UserID = 0
		e.Outcome = audit.OutcomeFailure
		e.Reason = string(apperrors.As(err).Code)
	}
	s.auditor.Log(ctx, e)
}
