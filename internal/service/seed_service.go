package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"smartbin/portal/internal/config"
	"smartbin/portal/internal/repository"
)

// SeedService creates the configured demo accounts.
type SeedService struct {
	userRepo repository.UserRepository
	users    UserService
	logger   *zap.Logger
}

func NewSeedService(userRepo repository.UserRepository, users UserService, logger *zap.Logger) *SeedService {
	return &SeedService{userRepo: userRepo, users: users, logger: logger}
}

// Seed creates each account whose email is not registered yet. Existing
// accounts are left untouched.
func (s *SeedService) Seed(ctx context.Context, accounts []config.SeedUser) (int, error) {
	created := 0
	for _, a := range accounts {
		email, ok := normalizeEmail(a.Email)
		if !ok {
			return created, fmt.Errorf("seed user %q: %w", a.Email, ErrUserInvalid)
		}
		_, err := s.userRepo.GetByEmail(ctx, email)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, fmt.Errorf("seed user %q: %w", email, err)
		}

		user, err := s.users.Create(ctx, CreateUserInput{
			Email:    email,
			Name:     a.Name,
			Password: a.Password,
			Role:     a.Role,
		})
		if err != nil {
			return created, fmt.Errorf("seed user %q: %w", email, err)
		}
		created++
		s.logger.Info("seeded user", zap.String("email", user.Email), zap.String("role", user.Role.String()))
	}
	return created, nil
}
