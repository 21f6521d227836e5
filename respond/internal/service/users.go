package service

import (
	"context"

	"github.com/threatlens/threatlens-stack/common/httputil"
	"github.com/threatlens/threatlens-stack/common/logging"
	"github.com/threatlens/threatlens-stack/respond/internal/models"
	"github.com/threatlens/threatlens-stack/respond/internal/repository"
)

// The operations below are reachable only through admin-gated routes. They
// manage accounts and never read another owner's records or alerts.

// ListUsers returns a page of accounts.
func (s *Service) ListUsers(ctx context.Context, page, limit int) (*models.ListUsersResponse, error) {
	p := s.normalizePage(page, limit)

	users, total, err := s.repo.ListUsers(ctx, p.Limit, p.Offset())
	if err != nil {
		return nil, err
	}

	return &models.ListUsersResponse{
		Data:        users,
		TotalPages:  httputil.TotalPages(total, p.Limit),
		CurrentPage: p.Page,
		Total:       total,
	}, nil
}

// UpdateUser changes another account's name, email or role. An admin cannot
// demote themselves.
func (s *Service) UpdateUser(ctx context.Context, actorID, id string, req *models.UserUpdate) (*models.User, error) {
	if actorID == "" {
		return nil, ErrMissingOwner
	}
	if req == nil {
		return nil, validationError("request body is required")
	}
	if req.Role != nil && !models.ValidRole(*req.Role) {
		return nil, validationError("role must be one of: %s, %s", models.RoleUser, models.RoleAdmin)
	}
	if !validID(id) {
		return nil, repository.ErrUserNotFound
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyAccountChanges(user, req.Name, req.Email); err != nil {
		return nil, err
	}
	if req.Role != nil {
		if id == actorID && *req.Role != user.Role {
			return nil, ErrSelfManagement
		}
		user.Role = *req.Role
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user updated by admin",
		logging.UserID(user.ID),
		"admin_id", actorID,
		"role", user.Role,
	)
	return user, nil
}

// DeleteUser removes another account along with everything it owns.
func (s *Service) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID == "" {
		return ErrMissingOwner
	}
	if !validID(id) {
		return repository.ErrUserNotFound
	}
	if id == actorID {
		return ErrSelfManagement
	}

	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "user deleted by admin", logging.UserID(id), "admin_id", actorID)
	return nil
}
