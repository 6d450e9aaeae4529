package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"smartbin/portal/internal/model"
	"smartbin/portal/internal/repository"
	"smartbin/portal/pkg/authz"
)

var errDB = errors.New("db down")

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
	err   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*model.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) List(_ context.Context, offset, limit int) ([]model.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	return window(all, offset, limit), int64(len(all)), nil
}

func (r *fakeUserRepo) CountByRole(_ context.Context) (map[authz.Role]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := map[authz.Role]int64{}
	for _, u := range r.users {
		out[u.Role]++
	}
	return out, nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

type fakeBinRepo struct {
	mu   sync.Mutex
	bins map[uuid.UUID]*model.Bin
	err  error

	// beforeUpdate runs between the service's read and its write.
	beforeUpdate func()
}

func newFakeBinRepo(bins ...model.Bin) *fakeBinRepo {
	r := &fakeBinRepo{bins: map[uuid.UUID]*model.Bin{}}
	for i := range bins {
		b := bins[i]
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		r.bins[b.ID] = &b
	}
	return r
}

func (r *fakeBinRepo) sorted() []model.Bin {
	all := make([]model.Bin, 0, len(r.bins))
	for _, b := range r.bins {
		all = append(all, *b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	return all
}

func (r *fakeBinRepo) Create(_ context.Context, b *model.Bin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.bins[b.ID] = &cp
	return nil
}

func (r *fakeBinRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Bin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bins[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBinRepo) GetByCode(_ context.Context, code string) (*model.Bin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bins {
		if b.Code == code {
			cp := *b
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBinRepo) List(_ context.Context, f repository.BinFilter, offset, limit int) ([]model.Bin, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Bin
	for _, b := range r.sorted() {
		if f.OwnerID != nil && !b.OwnedBy(*f.OwnerID) {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, b)
	}
	return window(out, offset, limit), int64(len(out)), nil
}

func (r *fakeBinRepo) Update(_ context.Context, b *model.Bin) error {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	if cur, ok := r.bins[b.ID]; ok {
		cp.FillLevel = cur.FillLevel
		cp.LastEmptiedAt = cur.LastEmptiedAt
	}
	r.bins[b.ID] = &cp
	return nil
}

func (r *fakeBinRepo) UpdateFill(_ context.Context, id uuid.UUID, level int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bins[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.FillLevel = level
	return nil
}

func (r *fakeBinRepo) MarkEmptied(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bins[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.FillLevel = 0
	b.LastEmptiedAt = &at
	return nil
}

func (r *fakeBinRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bins, id)
	return nil
}

func (r *fakeBinRepo) Aggregate(_ context.Context, threshold int) (*repository.FleetAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	agg := &repository.FleetAggregate{}
	var sum int
	for _, b := range r.bins {
		agg.Total++
		sum += b.FillLevel
		if b.NeedsPickup(threshold) {
			agg.NeedsPickup++
		}
	}
	if agg.Total > 0 {
		agg.AverageFill = float64(sum) / float64(agg.Total)
	}
	return agg, nil
}

func (r *fakeBinRepo) CountByStatus(_ context.Context) (map[model.BinStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.BinStatus]int64{}
	for _, b := range r.bins {
		out[b.Status]++
	}
	return out, nil
}

func (r *fakeBinRepo) CountByWasteType(_ context.Context) (map[model.WasteType]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.WasteType]int64{}
	for _, b := range r.bins {
		out[b.WasteType]++
	}
	return out, nil
}

func (r *fakeBinRepo) Fullest(_ context.Context, limit int) ([]model.Bin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active []model.Bin
	for _, b := range r.sorted() {
		if b.Status == model.BinStatusActive {
			active = append(active, b)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].FillLevel > active[j].FillLevel })
	return window(active, 0, limit), nil
}

func (r *fakeBinRepo) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

type fakeSubmissionRepo struct {
	mu   sync.Mutex
	subs []*model.Submission
}

func (r *fakeSubmissionRepo) Create(_ context.Context, s *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.subs = append(r.subs, &cp)
	return nil
}

func (r *fakeSubmissionRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSubmissionRepo) List(_ context.Context, kind model.SubmissionKind, offset, limit int) ([]model.Submission, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Submission
	for i := len(r.subs) - 1; i >= 0; i-- {
		if kind == "" || r.subs[i].Kind == kind {
			out = append(out, *r.subs[i])
		}
	}
	return window(out, offset, limit), int64(len(out)), nil
}

func (r *fakeSubmissionRepo) Update(_ context.Context, s *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.subs {
		if cur.ID == s.ID {
			cp := *s
			r.subs[i] = &cp
		}
	}
	return nil
}

func (r *fakeSubmissionRepo) CountByStatus(_ context.Context, status model.SubmissionStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.subs {
		if s.Status == status {
			n++
		}
	}
	return n, nil
}

func window[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

var (
	_ repository.UserRepository       = (*fakeUserRepo)(nil)
	_ repository.BinRepository        = (*fakeBinRepo)(nil)
	_ repository.SubmissionRepository = (*fakeSubmissionRepo)(nil)
)
