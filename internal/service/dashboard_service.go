package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"smartbin/portal/internal/config"
	"smartbin/portal/internal/model"
	"smartbin/portal/internal/repository"
	"smartbin/portal/pkg/authz"
	"smartbin/portal/pkg/fetch"
)

// DashboardService serves fleet statistics from background-refreshed
// controllers. The last good value is served while a refresh fails.
type DashboardService interface {
	Stats(ctx context.Context) (*model.FleetStats, error)
	Overview(ctx context.Context) (*model.Overview, error)
	// Close stops background refreshes.
	Close()
}

type dashboardService struct {
	binRepo  repository.BinRepository
	userRepo repository.UserRepository
	subRepo  repository.SubmissionRepository
	cfg      config.DashboardConfig
	logger   *zap.Logger
	now      func() time.Time

	stats    *fetch.Query[*model.FleetStats]
	overview *fetch.Query[*model.Overview]
}

func NewDashboardService(
	binRepo repository.BinRepository,
	userRepo repository.UserRepository,
	subRepo repository.SubmissionRepository,
	cfg config.DashboardConfig,
	logger *zap.Logger,
) DashboardService {
	s := &dashboardService{
		binRepo:  binRepo,
		userRepo: userRepo,
		subRepo:  subRepo,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}

	s.stats = fetch.NewQuery(s.loadStats, fetch.Options[*model.FleetStats]{
		CacheTime:       cfg.StatsCacheTTL,
		RefetchInterval: cfg.RefreshInterval,
		Timeout:         cfg.FetchTimeout,
		Logger:          logger.Named("stats"),
		OnError: func(msg string) {
			logger.Warn("fleet stats refresh failed", zap.String("error", msg))
		},
	})
	// The overview is built on demand only; its fleet half comes from the
	// stats controller.
	s.overview = fetch.NewQuery(s.loadOverview, fetch.Options[*model.Overview]{
		Manual:    true,
		CacheTime: cfg.StatsCacheTTL,
		Timeout:   cfg.FetchTimeout,
		Logger:    logger.Named("overview"),
	})
	return s
}

func (s *dashboardService) Stats(ctx context.Context) (*model.FleetStats, error) {
	return current(ctx, s.stats)
}

func (s *dashboardService) Overview(ctx context.Context) (*model.Overview, error) {
	return current(ctx, s.overview)
}

// current refreshes q when its cache has expired and returns whatever data
// it holds afterwards.
func current[T any](ctx context.Context, q *fetch.Query[*T]) (*T, error) {
	q.Refetch(ctx)
	st := q.State()
	if st.HasData && st.Data != nil {
		return st.Data, nil
	}
	if st.Failed() {
		return nil, fmt.Errorf("%w: %s", ErrStatsUnavailable, st.Error)
	}
	return nil, ErrStatsUnavailable
}

func (s *dashboardService) Close() {
	s.stats.Close()
	s.overview.Close()
}

func (s *dashboardService) loadStats(ctx context.Context) (*model.FleetStats, error) {
	var (
		agg       *repository.FleetAggregate
		byStatus  map[model.BinStatus]int64
		byWaste   map[model.WasteType]int64
		fullest   []model.Bin
		newSubmit int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		agg, err = s.binRepo.Aggregate(gctx, s.cfg.PickupThreshold)
		return err
	})
	g.Go(func() error {
		var err error
		byStatus, err = s.binRepo.CountByStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		byWaste, err = s.binRepo.CountByWasteType(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		fullest, err = s.binRepo.Fullest(gctx, s.cfg.FullestLimit)
		return err
	})
	g.Go(func() error {
		var err error
		newSubmit, err = s.subRepo.CountByStatus(gctx, model.SubmissionNew)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compute fleet stats: %w", err)
	}

	if fullest == nil {
		fullest = []model.Bin{}
	}
	return &model.FleetStats{
		TotalBins:      agg.Total,
		ByStatus:       byStatus,
		ByWasteType:    byWaste,
		AverageFill:    agg.AverageFill,
		NeedsPickup:    agg.NeedsPickup,
		NewSubmissions: newSubmit,
		Fullest:        fullest,
		GeneratedAt:    s.now(),
	}, nil
}

func (s *dashboardService) loadOverview(ctx context.Context) (*model.Overview, error) {
	var (
		fleet  *model.FleetStats
		byRole map[authz.Role]int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fleet, err = s.Stats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		byRole, err = s.userRepo.CountByRole(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrStatsUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("compute overview: %w", err)
	}

	var total int64
	for _, n := range byRole {
		total += n
	}
	return &model.Overview{
		Fleet:       *fleet,
		UsersByRole: byRole,
		TotalUsers:  total,
		GeneratedAt: s.now(),
	}, nil
}

var _ DashboardService = (*dashboardService)(nil)
