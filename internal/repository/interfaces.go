package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jwalitptl/metabridge-api/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// All repository interfaces in one file
type (
	// CredentialRepository stores one user type's records together with their password hash and OTP state.
	CredentialRepository interface {
		UserType() model.UserType
		Create(ctx context.Context, profile model.Profile, passwordHash string) (model.Profile, error)
		ExistsByEmail(ctx context.Context, email string) (bool, error)
		GetCredential(ctx context.Context, email string) (*model.Credential, error)
		GetProfileByEmail(ctx context.Context, email string) (model.Profile, error)
		GetProfileByID(ctx context.Context, id int64) (model.Profile, error)
		// SetOTP overwrites any pending code.
		SetOTP(ctx context.Context, email, code string, expiry time.Time) error
		// ConsumeOTP clears the pending code only if it still equals code. It reports whether it did.
		ConsumeOTP(ctx context.Context, email, code string) (bool, error)
	}

	// UserRepository handles the unified users table
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		ExistsByEmail(ctx context.Context, email string) (bool, error)
	}
)
