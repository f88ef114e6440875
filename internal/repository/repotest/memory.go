// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"sync"
	"time"

	"github.com/jwalitptl/metabridge-api/internal/model"
	"github.com/jwalitptl/metabridge-api/internal/repository"
)

type record struct {
	profile model.Profile
	cred    model.Credential
}

// CredentialRepository is a concurrency-safe in-memory repository.CredentialRepository.
type CredentialRepository struct {
	mu      sync.Mutex
	ut      model.UserType
	nextID  int64
	byEmail map[string]*record

	// Err, when set, is returned by every call.
	Err error
}

func NewCredentialRepository(ut model.UserType) *CredentialRepository {
	return &CredentialRepository{ut: ut, byEmail: make(map[string]*record)}
}

func (r *CredentialRepository) UserType() model.UserType { return r.ut }

func (r *CredentialRepository) Create(_ context.Context, profile model.Profile, passwordHash string) (model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	if _, ok := r.byEmail[profile.GetEmail()]; ok {
		return nil, repository.ErrDuplicate
	}

	r.nextID++
	now := time.Now().UTC()
	switch p := profile.(type) {
	case *model.Doctor:
		p.ID, p.CreatedAt = r.nextID, now
	case *model.Patient:
		p.ID, p.CreatedAt = r.nextID, now
	}

	var phone *string
	if ph := profile.GetPhone(); ph != "" {
		phone = &ph
	}
	r.byEmail[profile.GetEmail()] = &record{
		profile: profile,
		cred: model.Credential{
			ID:           r.nextID,
			Email:        profile.GetEmail(),
			PasswordHash: passwordHash,
			Phone:        phone,
		},
	}
	return profile, nil
}

func (r *CredentialRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *CredentialRepository) GetCredential(_ context.Context, email string) (*model.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	rec, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cred := rec.cred
	return &cred, nil
}

func (r *CredentialRepository) GetProfileByEmail(_ context.Context, email string) (model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	rec, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rec.profile, nil
}

func (r *CredentialRepository) GetProfileByID(_ context.Context, id int64) (model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, rec := range r.byEmail {
		if rec.cred.ID == id {
			return rec.profile, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *CredentialRepository) SetOTP(_ context.Context, email, code string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	rec, ok := r.byEmail[email]
	if !ok {
		return repository.ErrNotFound
	}
	rec.cred.OTP = &code
	rec.cred.OTPExpiry = &expiry
	return nil
}

func (r *CredentialRepository) ConsumeOTP(_ context.Context, email, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	rec, ok := r.byEmail[email]
	if !ok || rec.cred.OTP == nil || *rec.cred.OTP != code {
		return false, nil
	}
	rec.cred.OTP = nil
	rec.cred.OTPExpiry = nil
	return true, nil
}

// PendingOTP exposes the stored code for assertions.
func (r *CredentialRepository) PendingOTP(email string) (string, *time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byEmail[email]
	if !ok || rec.cred.OTP == nil {
		return "", nil
	}
	return *rec.cred.OTP, rec.cred.OTPExpiry
}

// UserRepository is an in-memory repository.UserRepository.
type UserRepository struct {
	mu      sync.Mutex
	nextID  int64
	byEmail map[string]model.User

	Err error
}

func NewUserRepository() *UserRepository {
	return &UserRepository{byEmail: make(map[string]model.User)}
}

func (r *UserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.byEmail[user.Email]; ok {
		return repository.ErrDuplicate
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now().UTC()
	r.byEmail[user.Email] = *user
	return nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	u, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	_, ok := r.byEmail[email]
	return ok, nil
}

var (
	_ repository.CredentialRepository = (*CredentialRepository)(nil)
	_ repository.UserRepository       = (*UserRepository)(nil)
)
