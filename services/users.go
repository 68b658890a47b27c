package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"idealtransport/models"
	"idealtransport/repository"
)

// UserService is the admin side of account management.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

func userNotFound(id int64) *Error {
	return notFound("user_not_found", "User %d not found", id)
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	list, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	if list == nil {
		list = []*models.User{}
	}
	return list, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, userNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("users: get: %w", err)
	}
	return u, nil
}

func (s *UserService) Create(ctx context.Context, in *models.UserCreateInput) (*models.User, error) {
	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Email:          normalizeEmail(in.Email),
		HashedPassword: hashed,
		FullName:       strings.TrimSpace(in.FullName),
		IsActive:       in.IsActive == nil || *in.IsActive,
		IsAdmin:        in.IsAdmin,
	}
	if err := createUser(ctx, s.users, u); err != nil {
		return nil, err
	}
	s.logger.Info("user created", slog.Int64("user_id", u.ID), slog.Bool("is_admin", u.IsAdmin))
	return u, nil
}

// Update changes a user. Admins cannot lock themselves out by demoting or
// deactivating their own account.
func (s *UserService) Update(ctx context.Context, actorID, id int64, upd *models.UserUpdate) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID == id {
		if upd.IsAdmin != nil && !*upd.IsAdmin {
			return nil, invalid("self_lockout", "You cannot remove your own admin role")
		}
		if upd.IsActive != nil && !*upd.IsActive {
			return nil, invalid("self_lockout", "You cannot deactivate your own account")
		}
	}

	if upd.FullName != nil {
		u.FullName = strings.TrimSpace(*upd.FullName)
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.IsAdmin != nil {
		u.IsAdmin = *upd.IsAdmin
	}
	if upd.Password != nil {
		hashed, err := hashPassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		u.HashedPassword = hashed
	}

	if err := s.users.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, userNotFound(id)
		}
		return nil, fmt.Errorf("users: update: %w", err)
	}
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return invalid("self_lockout", "You cannot delete your own account")
	}
	err := s.users.DeleteUser(ctx, id)
	switch {
	case err == nil:
		s.logger.Info("user deleted", slog.Int64("user_id", id))
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return userNotFound(id)
	case errors.Is(err, repository.ErrInUse):
		return conflict("user_in_use", "User %d has recorded transactions or expenses; deactivate the account instead", id)
	default:
		return fmt.Errorf("users: delete: %w", err)
	}
}

// EnsureAdmin creates an active admin with the given credentials, or
// promotes and reactivates the existing account with that email. A
// non-empty password replaces the stored one.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password, fullName string) (*models.User, bool, error) {
	email = normalizeEmail(email)
	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		created, err := s.Create(ctx, &models.UserCreateInput{
			Email:    email,
			Password: password,
			FullName: fullName,
			IsAdmin:  true,
		})
		return created, true, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("users: ensure admin: %w", err)
	}

	t := true
	upd := &models.UserUpdate{IsActive: &t, IsAdmin: &t}
	if password != "" {
		upd.Password = &password
	}
	if fullName != "" {
		upd.FullName = &fullName
	}
	updated, err := s.Update(ctx, 0, u.ID, upd)
	return updated, false, err
}
