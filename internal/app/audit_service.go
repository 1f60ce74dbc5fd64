package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"portfolio-agent/internal/model"
	"portfolio-agent/internal/pkg/answertext"
	"portfolio-agent/internal/platform/logger"
)

const maxRecentDays = 90

// AuditStore is a day-partitioned append log of exchanges.
type AuditStore interface {
	Append(ctx context.Context, entry model.AuditEntry) error
	Recent(ctx context.Context, days int) ([]model.AuditEntry, error)
	Configured() bool
}

type AuditPublisher interface {
	Publish(ctx context.Context, entry model.AuditEntry) error
}

type FeedCache interface {
	Get(ctx context.Context, days int) ([]model.AuditEntry, bool, error)
	Generation(ctx context.Context) (int64, error)
	// Set stores items only if no invalidation happened since generation was read.
	Set(ctx context.Context, days int, generation int64, items []model.AuditEntry) (bool, error)
	Invalidate(ctx context.Context) error
	IsDirty(ctx context.Context) (bool, error)
}

type AuditService struct {
	store       AuditStore
	publisher   AuditPublisher
	cache       FeedCache
	defaultDays int
	log         *logger.Logger
	now         func() time.Time
}

// AuditInput is an exchange as submitted by a client. Confident is inferred
// from the answer when nil.
type AuditInput struct {
	Timestamp string
	Path      string
	Question  string
	Answer    string
	Confident *bool
	UserAgent string
}

type SubmitResult struct {
	Queued bool
	Stored bool
}

// NewAuditService wires the store with optional publisher and cache; either may be nil.
func NewAuditService(store AuditStore, publisher AuditPublisher, cache FeedCache, defaultDays int, log *logger.Logger) *AuditService {
	if defaultDays <= 0 {
		defaultDays = 14
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AuditService{
		store:       store,
		publisher:   publisher,
		cache:       cache,
		defaultDays: defaultDays,
		log:         log,
		now:         time.Now,
	}
}

func (s *AuditService) Configured() bool {
	return s.store != nil && s.store.Configured()
}

// Submit records an exchange. With a publisher the entry is queued for the
// append worker; a failed publish falls back to a direct append.
func (s *AuditService) Submit(ctx context.Context, input AuditInput) (SubmitResult, error) {
	if !s.Configured() {
		return SubmitResult{}, nil
	}
	entry, err := s.normalize(input)
	if err != nil {
		return SubmitResult{}, err
	}

	if s.publisher != nil {
		err := s.publisher.Publish(ctx, entry)
		if err == nil {
			return SubmitResult{Queued: true}, nil
		}
		s.log.Warn("audit publish failed, appending directly", "error", err)
	}

	if err := s.Append(ctx, entry); err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{Stored: true}, nil
}

// Append writes entry to the store and invalidates cached feeds.
func (s *AuditService) Append(ctx context.Context, entry model.AuditEntry) error {
	if !s.Configured() {
		return nil
	}
	if err := s.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry failed: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.Warn("invalidate audit feed cache failed", "error", err)
		}
	}
	return nil
}

// Recent returns entries from the last days days, newest first. days <= 0
// uses the default window.
func (s *AuditService) Recent(ctx context.Context, days int) ([]model.AuditEntry, error) {
	if !s.Configured() {
		return nil, ErrAuditNotConfigured
	}
	if days <= 0 {
		days = s.defaultDays
	}
	if days > maxRecentDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidInput, maxRecentDays)
	}

	useCache := s.cache != nil
	if useCache {
		if dirty, err := s.cache.IsDirty(ctx); err != nil {
			s.log.Warn("check audit feed dirty marker failed", "error", err)
			useCache = false
		} else if dirty {
			useCache = false
		}
	}
	if useCache {
		items, ok, err := s.cache.Get(ctx, days)
		if err != nil {
			s.log.Warn("read audit feed cache failed", "error", err)
		} else if ok {
			return items, nil
		}
	}

	var generation int64
	if useCache {
		gen, err := s.cache.Generation(ctx)
		if err != nil {
			s.log.Warn("read audit feed generation failed", "error", err)
			useCache = false
		}
		generation = gen
	}

	items, err := s.store.Recent(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("read audit log failed: %w", err)
	}
	if items == nil {
		items = []model.AuditEntry{}
	}
	if useCache {
		stored, err := s.cache.Set(ctx, days, generation, items)
		if err != nil {
			s.log.Warn("write audit feed cache failed", "error", err)
		} else if !stored {
			s.log.Debug("audit feed changed during read, cache not refreshed", "days", days)
		}
	}
	return items, nil
}

func (s *AuditService) normalize(input AuditInput) (model.AuditEntry, error) {
	question := strings.TrimSpace(input.Question)
	answer := strings.TrimSpace(input.Answer)
	if question == "" && answer == "" {
		return model.AuditEntry{}, fmt.Errorf("%w: question and answer are empty", ErrInvalidInput)
	}

	entry := model.AuditEntry{
		Timestamp: strings.TrimSpace(input.Timestamp),
		Path:      input.Path,
		Question:  question,
		Answer:    answer,
		UserAgent: input.UserAgent,
	}
	if entry.Timestamp == "" {
		entry.Timestamp = model.FormatTimestamp(s.now())
	}
	if input.Confident != nil {
		entry.Confident = *input.Confident
	} else {
		entry.Confident = answertext.IsConfident(answer)
	}
	return entry, nil
}
