package repository

import (
	"context"

	"github.com/google/uuid"

	"smartbin/portal/internal/model"
)

type SubmissionRepository interface {
	Create(ctx context.Context, sub *model.Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Submission, error)
	// List returns submissions newest first; an empty kind lists all kinds.
	List(ctx context.Context, kind model.SubmissionKind, offset, limit int) ([]model.Submission, int64, error)
	Update(ctx context.Context, sub *model.Submission) error
	CountByStatus(ctx context.Context, status model.SubmissionStatus) (int64, error)
}
