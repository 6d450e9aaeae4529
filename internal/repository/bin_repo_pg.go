package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"smartbin/portal/internal/model"
)

type pgBinRepository struct {
	db *gorm.DB
}

func NewPGBinRepository(db *gorm.DB) BinRepository {
	return &pgBinRepository{db: db}
}

func (r *pgBinRepository) Create(ctx context.Context, bin *model.Bin) error {
	return r.db.WithContext(ctx).Create(bin).Error
}

func (r *pgBinRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Bin, error) {
	var bin model.Bin
	if err := r.db.WithContext(ctx).First(&bin, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bin, nil
}

func (r *pgBinRepository) GetByCode(ctx context.Context, code string) (*model.Bin, error) {
	var bin model.Bin
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&bin).Error; err != nil {
		return nil, err
	}
	return &bin, nil
}

func (r *pgBinRepository) List(ctx context.Context, filter BinFilter, offset, limit int) ([]model.Bin, int64, error) {
	var (
		bins  []model.Bin
		total int64
	)
	q := r.db.WithContext(ctx).Model(&model.Bin{})
	if filter.OwnerID != nil {
		q = q.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	q = q.Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("code ASC").Offset(offset).Limit(limit).Find(&bins).Error
	return bins, total, err
}

func (r *pgBinRepository) Update(ctx context.Context, bin *model.Bin) error {
	return r.db.WithContext(ctx).Omit("fill_level", "last_emptied_at").Save(bin).Error
}

func (r *pgBinRepository) UpdateFill(ctx context.Context, id uuid.UUID, level int) error {
	return r.updateColumns(ctx, id, map[string]any{"fill_level": level})
}

func (r *pgBinRepository) MarkEmptied(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]any{"fill_level": 0, "last_emptied_at": at})
}

// updateColumns writes only the given columns so concurrent edits to other
// fields of the same row are preserved.
func (r *pgBinRepository) updateColumns(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&model.Bin{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *pgBinRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Bin{}, "id = ?", id).Error
}

func (r *pgBinRepository) Aggregate(ctx context.Context, pickupThreshold int) (*FleetAggregate, error) {
	var agg FleetAggregate
	err := r.db.WithContext(ctx).
		Model(&model.Bin{}).
		Select(
			"count(*) AS total, "+
				"coalesce(avg(fill_level), 0) AS average_fill, "+
				"count(*) FILTER (WHERE status = ? AND fill_level >= ?) AS needs_pickup",
			model.BinStatusActive, pickupThreshold,
		).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

func (r *pgBinRepository) CountByStatus(ctx context.Context) (map[model.BinStatus]int64, error) {
	var rows []struct {
		Status model.BinStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Bin{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[model.BinStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *pgBinRepository) CountByWasteType(ctx context.Context) (map[model.WasteType]int64, error) {
	var rows []struct {
		WasteType model.WasteType
		Count     int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Bin{}).
		Select("waste_type, count(*) AS count").
		Group("waste_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[model.WasteType]int64, len(rows))
	for _, row := range rows {
		counts[row.WasteType] = row.Count
	}
	return counts, nil
}

func (r *pgBinRepository) Fullest(ctx context.Context, limit int) ([]model.Bin, error) {
	var bins []model.Bin
	err := r.db.WithContext(ctx).
		Where("status = ?", model.BinStatusActive).
		Order("fill_level DESC, code ASC").
		Limit(limit).
		Find(&bins).Error
	return bins, err
}
