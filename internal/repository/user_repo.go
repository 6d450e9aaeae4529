package repository

import (
	"context"

	"github.com/google/uuid"

	"smartbin/portal/internal/model"
	"smartbin/portal/pkg/authz"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, offset, limit int) ([]model.User, int64, error)
	CountByRole(ctx context.Context) (map[authz.Role]int64, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}
