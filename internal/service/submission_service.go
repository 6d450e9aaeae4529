package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"smartbin/portal/internal/model"
	"smartbin/portal/internal/repository"
)

type SubmissionInput struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Subject string
	Message string
}

type SubmissionService interface {
	Submit(ctx context.Context, kind model.SubmissionKind, in SubmissionInput) (*model.Submission, error)
	List(ctx context.Context, kind model.SubmissionKind, p Pagination) ([]model.Submission, int64, error)
	Review(ctx context.Context, reviewerID, id uuid.UUID) (*model.Submission, error)
	// Wait blocks until in-flight notifications finish or ctx is done.
	Wait(ctx context.Context) error
}

const (
	maxNameLen    = 128
	maxPhoneLen   = 32
	maxCompanyLen = 128
	maxSubjectLen = 256
	maxMessageLen = 5000

	defaultNotifyTimeout = 30 * time.Second
)

type submissionService struct {
	repo     repository.SubmissionRepository
	notifier Notifier
	policy   *bluemonday.Policy
	logger   *zap.Logger

	notifyTimeout time.Duration
	pending       sync.WaitGroup
}

// NewSubmissionService builds the service. notifier may be nil.
func NewSubmissionService(repo repository.SubmissionRepository, notifier Notifier, logger *zap.Logger) SubmissionService {
	return &submissionService{
		repo:     repo,
		notifier: notifier,
		policy:   bluemonday.StrictPolicy(),
		logger:   logger,

		notifyTimeout: defaultNotifyTimeout,
	}
}

// clean strips markup and trims. StrictPolicy escapes what it keeps, so the
// entities are decoded again for plain-text storage.
func (s *submissionService) clean(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

func (s *submissionService) Submit(ctx context.Context, kind model.SubmissionKind, in SubmissionInput) (*model.Submission, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrSubmissionInvalid, kind)
	}

	sub := &model.Submission{
		ID:      uuid.New(),
		Kind:    kind,
		Name:    s.clean(in.Name),
		Phone:   s.clean(in.Phone),
		Company: s.clean(in.Company),
		Subject: s.clean(in.Subject),
		Message: s.clean(in.Message),
		Status:  model.SubmissionNew,
	}
	email, ok := normalizeEmail(in.Email)
	if !ok {
		return nil, fmt.Errorf("%w: email is not a valid address", ErrSubmissionInvalid)
	}
	sub.Email = email

	switch {
	case sub.Name == "" || tooLong(sub.Name, maxNameLen):
		return nil, fmt.Errorf("%w: name must be 1-%d characters", ErrSubmissionInvalid, maxNameLen)
	case tooLong(sub.Phone, maxPhoneLen):
		return nil, fmt.Errorf("%w: phone is too long", ErrSubmissionInvalid)
	case tooLong(sub.Company, maxCompanyLen):
		return nil, fmt.Errorf("%w: company is too long", ErrSubmissionInvalid)
	case tooLong(sub.Subject, maxSubjectLen):
		return nil, fmt.Errorf("%w: subject is too long", ErrSubmissionInvalid)
	case kind == model.SubmissionCareer && sub.Subject == "":
		return nil, fmt.Errorf("%w: position is required", ErrSubmissionInvalid)
	case sub.Message == "" || tooLong(sub.Message, maxMessageLen):
		return nil, fmt.Errorf("%w: message must be 1-%d characters", ErrSubmissionInvalid, maxMessageLen)
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}
	s.logger.Info("submission received", zap.String("id", sub.ID.String()), zap.String("kind", string(kind)))

	if s.notifier != nil {
		s.notify(ctx, *sub)
	}
	return sub, nil
}

// notify sends the notification off the request path. The request context's
// values are kept but not its cancellation.
func (s *submissionService) notify(ctx context.Context, sub model.Submission) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		if err := s.notifier.NotifySubmission(ctx, &sub); err != nil {
			s.logger.Warn("failed to send submission notification",
				zap.String("id", sub.ID.String()), zap.Error(err))
		}
	}()
}

func (s *submissionService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *submissionService) List(ctx context.Context, kind model.SubmissionKind, p Pagination) ([]model.Submission, int64, error) {
	if kind != "" && !kind.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown kind %q", ErrSubmissionInvalid, kind)
	}
	p = p.Normalize()
	subs, total, err := s.repo.List(ctx, kind, p.Offset(), p.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, total, nil
}

func (s *submissionService) Review(ctx context.Context, reviewerID, id uuid.UUID) (*model.Submission, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to find submission: %w", err)
	}
	if sub.Status == model.SubmissionReviewed {
		return sub, nil
	}
	reviewer := reviewerID
	sub.Status = model.SubmissionReviewed
	sub.ReviewedBy = &reviewer
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}
	return sub, nil
}

var _ SubmissionService = (*submissionService)(nil)
