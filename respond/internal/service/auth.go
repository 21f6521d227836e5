package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/threatlens/threatlens-stack/common/logging"
	"github.com/threatlens/threatlens-stack/respond/internal/models"
	"github.com/threatlens/threatlens-stack/respond/internal/repository"
)

const minPasswordLength = 8

// Signup registers an account and returns an access token for it.
func (s *Service) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	if req == nil {
		return nil, validationError("request body is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationError("name is required")
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	hashedPassword, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	role := models.RoleUser
	if s.admins[email] {
		role = models.RoleAdmin
	}

	user := &models.User{
		ID:           newID(),
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", logging.UserID(user.ID), "role", user.Role)
	return s.issue(user)
}

// Login verifies credentials. Unknown emails and wrong passwords both yield
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if req == nil || req.Email == "" || req.Password == "" {
		return nil, validationError("email and password are required")
	}

	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, ErrMissingOwner
	}
	if !validID(userID) {
		return nil, repository.ErrUserNotFound
	}
	return s.repo.GetUserByID(ctx, userID)
}

// Refresh issues a fresh token for the caller from the stored account, so a
// role change takes effect without signing in again.
func (s *Service) Refresh(ctx context.Context, userID string) (*models.AuthResponse, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// UpdateProfile changes the caller's name and/or email.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req *models.ProfileUpdate) (*models.User, error) {
	if req == nil {
		return nil, validationError("request body is required")
	}
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := applyAccountChanges(user, req.Name, req.Email); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "profile updated", logging.UserID(user.ID))
	return user, nil
}

// ChangePassword replaces the caller's password after checking the current
// one. A wrong current password yields ErrInvalidCredentials.
func (s *Service) ChangePassword(ctx context.Context, userID string, req *models.PasswordChange) error {
	if req == nil || req.CurrentPassword == "" || req.NewPassword == "" {
		return validationError("current_password and new_password are required")
	}
	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashedPassword, err := s.hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password changed", logging.UserID(user.ID))
	return nil
}

func (s *Service) hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", validationError("password must be at least %d characters", minPasswordLength)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// applyAccountChanges validates and copies the non-nil fields onto user.
func applyAccountChanges(user *models.User, name, email *string) error {
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return validationError("name cannot be empty")
		}
		user.Name = n
	}
	if email != nil {
		e, err := normalizeEmail(*email)
		if err != nil {
			return err
		}
		user.Email = e
	}
	return nil
}

func (s *Service) issue(user *models.User) (*models.AuthResponse, error) {
	token, expiresAt, err := s.tokens.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return &models.AuthResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", validationError("email is not a valid address")
	}
	return email, nil
}
