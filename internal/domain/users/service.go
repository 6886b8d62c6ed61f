package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bomanihosts/backend/internal/auth"
	"github.com/bomanihosts/backend/internal/validation"
	"github.com/rs/zerolog"
)

// Registration is the untrusted sign-up payload.
type Registration struct {
	Username  string `json:"username" validate:"required,max=150,username"`
	Email     string `json:"email" validate:"required,max=254,email"`
	Password  string `json:"password" validate:"required"`
	Password2 string `json:"password2"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
	IsHost    bool   `json:"is_host"`
}

func (r Registration) normalize() Registration {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	return r
}

type Service struct {
	repo      Repository
	hasher    PasswordHasher
	validator *validation.Validator
	logger    zerolog.Logger
}

func NewService(repo Repository, hasher PasswordHasher, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		hasher:    hasher,
		validator: validation.New(),
		logger:    logger.With().Str("component", "users").Logger(),
	}
}

// Register validates reg, enforces uniqueness and stores the account.
// Field problems come back as validation.Errors; conflicts wrap
// ErrUsernameTaken and/or ErrEmailTaken.
func (s *Service) Register(ctx context.Context, reg Registration) (*User, error) {
	reg = reg.normalize()

	errs := s.validator.Struct(reg, nil)
	if reg.Password != "" {
		for _, problem := range auth.CheckPasswordPolicy(reg.Password, reg.Username, reg.Email) {
			errs.Add("password", problem)
		}
	}
	if reg.Password2 != "" && reg.Password2 != reg.Password {
		errs.Add("password", "Password fields didn't match.")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	var conflicts []error
	if _, err := s.repo.FindByUsername(ctx, reg.Username); err == nil {
		conflicts = append(conflicts, ErrUsernameTaken)
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if _, err := s.repo.FindByEmail(ctx, reg.Email); err == nil {
		conflicts = append(conflicts, ErrEmailTaken)
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if len(conflicts) > 0 {
		return nil, errors.Join(conflicts...)
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Create(ctx, NewUser{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		Phone:        reg.Phone,
		IsHost:       reg.IsHost,
	})
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Bool("is_host", user.IsHost).
		Msg("user registered")
	return user, nil
}

// Authenticate resolves identifier as a username first, then as an email
// address, and checks the password.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, identifier)
	if errors.Is(err, ErrUserNotFound) && strings.Contains(identifier, "@") {
		user, err = s.repo.FindByEmail(ctx, strings.ToLower(identifier))
	}
	if errors.Is(err, ErrUserNotFound) {
		s.hasher.CompareDummy(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetActive loads an account by id, treating a deactivated account as missing.
func (s *Service) GetActive(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserNotFound
	}
	return user, nil
}
