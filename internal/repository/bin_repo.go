package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"smartbin/portal/internal/model"
)

// BinFilter narrows bin listings. A nil OwnerID lists the whole fleet.
type BinFilter struct {
	OwnerID *uuid.UUID
	Status  model.BinStatus
}

// FleetAggregate is the raw fleet summary computed in the database.
type FleetAggregate struct {
	Total       int64
	AverageFill float64
	NeedsPickup int64
}

type BinRepository interface {
	Create(ctx context.Context, bin *model.Bin) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Bin, error)
	GetByCode(ctx context.Context, code string) (*model.Bin, error)
	List(ctx context.Context, filter BinFilter, offset, limit int) ([]model.Bin, int64, error)
	// Update writes the descriptive fields. Fill level and last-emptied time
	// are owned by UpdateFill and MarkEmptied.
	Update(ctx context.Context, bin *model.Bin) error
	UpdateFill(ctx context.Context, id uuid.UUID, level int) error
	MarkEmptied(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error

	Aggregate(ctx context.Context, pickupThreshold int) (*FleetAggregate, error)
	CountByStatus(ctx context.Context) (map[model.BinStatus]int64, error)
	CountByWasteType(ctx context.Context) (map[model.WasteType]int64, error)
	Fullest(ctx context.Context, limit int) ([]model.Bin, error)
}
