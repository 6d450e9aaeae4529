package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"smartbin/portal/internal/model"
	"smartbin/portal/internal/repository"
	"smartbin/portal/pkg/authz"
)

// Viewer identifies who is reading bins. Roles without bins:view_all only
// see the bins they own.
type Viewer struct {
	UserID uuid.UUID
	Role   authz.Role
}

func (v Viewer) seesFleet() bool { return v.Role.Can(authz.PermBinsViewAll) }

type BinInput struct {
	Code           string
	Location       string
	Latitude       float64
	Longitude      float64
	CapacityLiters int
	Status         model.BinStatus
	WasteType      model.WasteType
	OwnerID        *uuid.UUID
}

// BinUpdate changes only the non-nil fields. ClearOwner unassigns the bin.
type BinUpdate struct {
	Location       *string
	Latitude       *float64
	Longitude      *float64
	CapacityLiters *int
	Status         *model.BinStatus
	WasteType      *model.WasteType
	OwnerID        *uuid.UUID
	ClearOwner     bool
}

type BinService interface {
	List(ctx context.Context, viewer Viewer, status model.BinStatus, p Pagination) ([]model.Bin, int64, error)
	Get(ctx context.Context, viewer Viewer, id uuid.UUID) (*model.Bin, error)
	Create(ctx context.Context, in BinInput) (*model.Bin, error)
	Update(ctx context.Context, id uuid.UUID, in BinUpdate) (*model.Bin, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ReportFill(ctx context.Context, id uuid.UUID, level int) (*model.Bin, error)
	Empty(ctx context.Context, id uuid.UUID) (*model.Bin, error)
}

var binCodePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,31}$`)

type binService struct {
	binRepo  repository.BinRepository
	userRepo repository.UserRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewBinService(binRepo repository.BinRepository, userRepo repository.UserRepository, logger *zap.Logger) BinService {
	return &binService{
		binRepo:  binRepo,
		userRepo: userRepo,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *binService) List(ctx context.Context, viewer Viewer, status model.BinStatus, p Pagination) ([]model.Bin, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrBinInvalid, status)
	}
	p = p.Normalize()
	filter := repository.BinFilter{Status: status}
	if !viewer.seesFleet() {
		owner := viewer.UserID
		filter.OwnerID = &owner
	}
	bins, total, err := s.binRepo.List(ctx, filter, p.Offset(), p.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bins: %w", err)
	}
	return bins, total, nil
}

func (s *binService) Get(ctx context.Context, viewer Viewer, id uuid.UUID) (*model.Bin, error) {
	bin, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	// Other customers' bins are reported as missing rather than forbidden.
	if !viewer.seesFleet() && !bin.OwnedBy(viewer.UserID) {
		return nil, ErrBinNotFound
	}
	return bin, nil
}

func (s *binService) find(ctx context.Context, id uuid.UUID) (*model.Bin, error) {
	bin, err := s.binRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBinNotFound
		}
		return nil, fmt.Errorf("failed to find bin: %w", err)
	}
	return bin, nil
}

func (s *binService) Create(ctx context.Context, in BinInput) (*model.Bin, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if !binCodePattern.MatchString(code) {
		return nil, fmt.Errorf("%w: code must be 2-32 letters, digits or dashes", ErrBinInvalid)
	}
	if in.Status == "" {
		in.Status = model.BinStatusActive
	}
	if in.WasteType == "" {
		in.WasteType = model.WasteTypeGeneral
	}
	if in.CapacityLiters == 0 {
		in.CapacityLiters = 240
	}

	bin := &model.Bin{
		ID:             uuid.New(),
		Code:           code,
		Location:       strings.TrimSpace(in.Location),
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		CapacityLiters: in.CapacityLiters,
		Status:         in.Status,
		WasteType:      in.WasteType,
		OwnerID:        in.OwnerID,
	}
	if err := s.validate(ctx, bin); err != nil {
		return nil, err
	}

	_, err := s.binRepo.GetByCode(ctx, code)
	if err == nil {
		return nil, ErrBinExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check bin code: %w", err)
	}

	if err := s.binRepo.Create(ctx, bin); err != nil {
		return nil, fmt.Errorf("failed to create bin: %w", err)
	}
	s.logger.Info("bin created", zap.String("code", bin.Code))
	return bin, nil
}

func (s *binService) Update(ctx context.Context, id uuid.UUID, in BinUpdate) (*model.Bin, error) {
	bin, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Location != nil {
		bin.Location = strings.TrimSpace(*in.Location)
	}
	if in.Latitude != nil {
		bin.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		bin.Longitude = *in.Longitude
	}
	if in.CapacityLiters != nil {
		bin.CapacityLiters = *in.CapacityLiters
	}
	if in.Status != nil {
		bin.Status = *in.Status
	}
	if in.WasteType != nil {
		bin.WasteType = *in.WasteType
	}
	switch {
	case in.ClearOwner:
		bin.OwnerID = nil
	case in.OwnerID != nil:
		owner := *in.OwnerID
		bin.OwnerID = &owner
	}

	if err := s.validate(ctx, bin); err != nil {
		return nil, err
	}
	if err := s.binRepo.Update(ctx, bin); err != nil {
		return nil, fmt.Errorf("failed to update bin: %w", err)
	}
	return s.find(ctx, id)
}

func (s *binService) validate(ctx context.Context, bin *model.Bin) error {
	switch {
	case bin.Location == "" || tooLong(bin.Location, 256):
		return fmt.Errorf("%w: location must be 1-256 characters", ErrBinInvalid)
	case bin.Latitude < -90 || bin.Latitude > 90:
		return fmt.Errorf("%w: latitude out of range", ErrBinInvalid)
	case bin.Longitude < -180 || bin.Longitude > 180:
		return fmt.Errorf("%w: longitude out of range", ErrBinInvalid)
	case bin.CapacityLiters <= 0:
		return fmt.Errorf("%w: capacity must be positive", ErrBinInvalid)
	case !bin.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrBinInvalid, bin.Status)
	case !bin.WasteType.Valid():
		return fmt.Errorf("%w: unknown waste type %q", ErrBinInvalid, bin.WasteType)
	}

	if bin.OwnerID != nil {
		if _, err := s.userRepo.GetByID(ctx, *bin.OwnerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: owner does not exist", ErrBinInvalid)
			}
			return fmt.Errorf("failed to find owner: %w", err)
		}
	}
	return nil
}

func (s *binService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.binRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete bin: %w", err)
	}
	return nil
}

// ReportFill records a sensor reading in percent.
func (s *binService) ReportFill(ctx context.Context, id uuid.UUID, level int) (*model.Bin, error) {
	if level < 0 || level > 100 {
		return nil, fmt.Errorf("%w: fill level must be between 0 and 100", ErrBinInvalid)
	}
	if err := s.binRepo.UpdateFill(ctx, id, level); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBinNotFound
		}
		return nil, fmt.Errorf("failed to update bin: %w", err)
	}
	return s.find(ctx, id)
}

func (s *binService) Empty(ctx context.Context, id uuid.UUID) (*model.Bin, error) {
	if err := s.binRepo.MarkEmptied(ctx, id, s.now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBinNotFound
		}
		return nil, fmt.Errorf("failed to update bin: %w", err)
	}
	bin, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("bin emptied", zap.String("code", bin.Code))
	return bin, nil
}

var _ BinService = (*binService)(nil)
