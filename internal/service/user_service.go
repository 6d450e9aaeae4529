package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"smartbin/portal/internal/model"
	"smartbin/portal/internal/repository"
	"smartbin/portal/pkg/authz"
	"smartbin/portal/pkg/crypto"
)

type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	Role     string
}

// UpdateUserInput changes only the non-nil fields.
type UpdateUserInput struct {
	Name     *string
	Role     *string
	Status   *model.UserStatus
	Password *string
}

type UserService interface {
	List(ctx context.Context, p Pagination) ([]model.User, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	Create(ctx context.Context, in CreateUserInput) (*model.User, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*model.User, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error
}

type userService struct {
	userRepo repository.UserRepository
	logger   *zap.Logger
}

func NewUserService(userRepo repository.UserRepository, logger *zap.Logger) UserService {
	return &userService{userRepo: userRepo, logger: logger}
}

func (s *userService) List(ctx context.Context, p Pagination) ([]model.User, int64, error) {
	p = p.Normalize()
	users, total, err := s.userRepo.List(ctx, p.Offset(), p.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func (s *userService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	email, ok := normalizeEmail(in.Email)
	if !ok {
		return nil, fmt.Errorf("%w: email is not a valid address", ErrUserInvalid)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || tooLong(name, 128) {
		return nil, fmt.Errorf("%w: name must be 1-128 characters", ErrUserInvalid)
	}
	if len(in.Password) < crypto.MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrUserInvalid, crypto.MinPasswordLength)
	}
	role, err := authz.ParseRole(in.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserInvalid, err)
	}

	_, err = s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		Status:       model.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("user created", zap.String("user_id", user.ID.String()), zap.String("role", role.String()))
	return user, nil
}

func (s *userService) Update(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || tooLong(name, 128) {
			return nil, fmt.Errorf("%w: name must be 1-128 characters", ErrUserInvalid)
		}
		user.Name = name
	}
	if in.Role != nil {
		role, err := authz.ParseRole(*in.Role)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUserInvalid, err)
		}
		user.Role = role
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status", ErrUserInvalid)
		}
		user.Status = *in.Status
	}
	if in.Password != nil {
		if len(*in.Password) < crypto.MinPasswordLength {
			return nil, fmt.Errorf("%w: password must be at least %d characters", ErrUserInvalid, crypto.MinPasswordLength)
		}
		hash, err := crypto.HashPassword(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *userService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return ErrCannotDeleteSelf
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.logger.Info("user deleted", zap.String("user_id", id.String()), zap.String("by", actorID.String()))
	return nil
}

var _ UserService = (*userService)(nil)
