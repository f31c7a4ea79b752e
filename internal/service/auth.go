package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/vitrina/internal/metrics"
	"github.com/erazemk/vitrina/internal/model"
	"github.com/erazemk/vitrina/internal/store"
	"github.com/erazemk/vitrina/internal/validation"
)

// AuthService authenticates admins and manages their passwords.
type AuthService struct {
	db       *sql.DB
	cost     int
	log      zerolog.Logger
	validate *validation.Validator

	// dummyHash is compared against when the username is unknown so both
	// failure paths take the same time.
	dummyHash func() []byte
}

type credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type passwordChange struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// NewAuthService hashes passwords with the given bcrypt cost.
func NewAuthService(db *sql.DB, cost int, log zerolog.Logger) *AuthService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	s := &AuthService{db: db, cost: cost, log: log, validate: validation.New()}
	s.dummyHash = sync.OnceValue(func() []byte {
		hash, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
		return hash
	})
	return s
}

// Login checks username and password and returns the identity to bind to
// a session.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.SessionUser, error) {
	if err := s.validate.Validate(credentials{Username: username, Password: password}); err != nil {
		return nil, validationError(err.Error())
	}

	admin, err := store.GetAdminByUsername(ctx, s.db, username)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, storeError("failed to look up admin", err)
	}

	hash := s.dummyHash()
	if admin != nil {
		hash = []byte(admin.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || admin == nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		s.log.Warn().Str("username", username).Msg("login failed")
		return nil, errInvalidCredentials
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user", admin.Username).Msg("admin logged in")
	return admin.Public(), nil
}

// ChangePassword replaces the password of the session's admin after
// checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, user *model.SessionUser, current, next string) error {
	if user == nil {
		return errNotAuthenticated
	}
	if err := s.validate.Validate(passwordChange{CurrentPassword: current, NewPassword: next}); err != nil {
		return validationError(err.Error())
	}

	admin, err := store.GetAdmin(ctx, s.db, user.ID)
	if err != nil {
		return storeError("failed to look up admin", err)
	}
	if admin == nil {
		return errNotAuthenticated
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(current)); err != nil {
		return &Error{Kind: KindInvalidCredentials, Msg: "current password is incorrect"}
	}
	if err := model.ValidatePassword(next); err != nil {
		return validationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return validationError("password must be at most 72 bytes")
	}
	if err != nil {
		return internalError("failed to hash password", err)
	}
	if err := store.UpdateAdminPassword(ctx, s.db, admin.ID, string(hash)); err != nil {
		return storeError("failed to update password", err)
	}

	s.log.Info().Str("user", admin.Username).Msg("admin changed password")
	return nil
}

// EnsureDefaultAdmin creates the admin account unless the username exists.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, username, email, password string) (bool, error) {
	existing, err := store.GetAdminByUsername(ctx, s.db, username)
	if err != nil {
		return false, storeError("failed to look up admin", err)
	}
	if existing != nil {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return false, internalError("failed to hash password", err)
	}
	if _, err := store.CreateAdmin(ctx, s.db, username, email, string(hash)); err != nil {
		return false, storeError("failed to create admin", err)
	}

	s.log.Info().Str("user", username).Msg("default admin created")
	return true, nil
}
