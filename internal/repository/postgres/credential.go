package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/metabridge-api/internal/model"
	"github.com/jwalitptl/metabridge-api/internal/repository"
)

type credentialRepository struct {
	BaseRepository
	userType model.UserType
	columns  string
}

// NewCredentialRepository stores records of userType in userType.Table.
func NewCredentialRepository(base BaseRepository, userType model.UserType) repository.CredentialRepository {
	return &credentialRepository{
		BaseRepository: base,
		userType:       userType,
		columns:        strings.Join(userType.ProfileColumns, ", "),
	}
}

func (r *credentialRepository) UserType() model.UserType {
	return r.userType
}

func (r *credentialRepository) Create(ctx context.Context, profile model.Profile, passwordHash string) (model.Profile, error) {
	cols, vals := profile.InsertFields(passwordHash)
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		r.userType.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), r.columns)

	created := r.userType.NewProfile()
	if err := r.db.QueryRowxContext(ctx, query, vals...).StructScan(created); err != nil {
		err = translate(err)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create %s: %w", r.userType.Name, err)
	}
	return created, nil
}

func (r *credentialRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE email = $1)`, r.userType.Table)

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("failed to check %s email: %w", r.userType.Name, err)
	}
	return exists, nil
}

func (r *credentialRepository) GetCredential(ctx context.Context, email string) (*model.Credential, error) {
	query := fmt.Sprintf(`
		SELECT id, email, password, phone, otp, otp_expiry
		FROM %s
		WHERE email = $1
	`, r.userType.Table)

	var cred model.Credential
	if err := r.db.GetContext(ctx, &cred, query, email); err != nil {
		return nil, r.notFoundOr("get credential", translate(err))
	}
	return &cred, nil
}

func (r *credentialRepository) GetProfileByEmail(ctx context.Context, email string) (model.Profile, error) {
	return r.getProfile(ctx, "email", email)
}

func (r *credentialRepository) GetProfileByID(ctx context.Context, id int64) (model.Profile, error) {
	return r.getProfile(ctx, "id", id)
}

func (r *credentialRepository) getProfile(ctx context.Context, column string, value interface{}) (model.Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, r.columns, r.userType.Table, column)

	profile := r.userType.NewProfile()
	if err := r.db.GetContext(ctx, profile, query, value); err != nil {
		return nil, r.notFoundOr("get profile", translate(err))
	}
	return profile, nil
}

func (r *credentialRepository) SetOTP(ctx context.Context, email, code string, expiry time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET otp = $1, otp_expiry = $2 WHERE email = $3`, r.userType.Table)

	result, err := r.db.ExecContext(ctx, query, code, expiry, email)
	if err != nil {
		return fmt.Errorf("failed to set otp: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *credentialRepository) ConsumeOTP(ctx context.Context, email, code string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET otp = NULL, otp_expiry = NULL
		WHERE email = $1 AND otp = $2
	`, r.userType.Table)

	result, err := r.db.ExecContext(ctx, query, email, code)
	if err != nil {
		return false, fmt.Errorf("failed to clear otp: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *credentialRepository) notFoundOr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return fmt.Errorf("failed to %s for %s: %w", op, r.userType.Name, err)
}
