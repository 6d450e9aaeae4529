package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"smartbin/portal/internal/model"
)

type pgSubmissionRepository struct {
	db *gorm.DB
}

func NewPGSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *pgSubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	var sub model.Submission
	if err := r.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *pgSubmissionRepository) List(
	ctx context.Context, kind model.SubmissionKind, offset, limit int,
) ([]model.Submission, int64, error) {
	var (
		subs  []model.Submission
		total int64
	)
	q := r.db.WithContext(ctx).Model(&model.Submission{})
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	q = q.Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&subs).Error
	return subs, total, err
}

func (r *pgSubmissionRepository) Update(ctx context.Context, sub *model.Submission) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *pgSubmissionRepository) CountByStatus(ctx context.Context, status model.SubmissionStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Submission{}).Where("status = ?", status).Count(&n).Error
	return n, err
}
