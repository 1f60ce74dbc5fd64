package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"portfolio-agent/internal/model"
	"portfolio-agent/internal/platform/logger"
)

// DefaultMaxRecentRows caps one feed read; older rows in the window are dropped.
const DefaultMaxRecentRows = 2000

type AuditRepository struct {
	db      *gorm.DB
	maxRows int
	log     *logger.Logger
	now     func() time.Time
}

func NewAuditRepository(db *gorm.DB, log *logger.Logger) *AuditRepository {
	if log == nil {
		log = logger.Nop()
	}
	return &AuditRepository{db: db, maxRows: DefaultMaxRecentRows, log: log, now: time.Now}
}

func (r *AuditRepository) Configured() bool {
	return r != nil && r.db != nil
}

func (r *AuditRepository) Append(ctx context.Context, entry model.AuditEntry) error {
	if entry.Timestamp == "" {
		entry.Timestamp = model.FormatTimestamp(r.now())
	}
	record := &model.AuditRecord{
		ID:        uuid.NewString(),
		Day:       entry.Day(),
		Timestamp: entry.Timestamp,
		Path:      entry.Path,
		Question:  entry.Question,
		Answer:    entry.Answer,
		Confident: entry.Confident,
		UserAgent: entry.UserAgent,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("create audit record failed: %w", err)
	}
	return nil
}

// Recent lists entries whose UTC day falls within the last days days, newest
// first. At most maxRows entries are returned; a truncated read is logged.
func (r *AuditRepository) Recent(ctx context.Context, days int) ([]model.AuditEntry, error) {
	if days <= 0 {
		days = 14
	}
	oldest := r.now().UTC().AddDate(0, 0, -(days - 1)).Format(time.DateOnly)

	var records []model.AuditRecord
	if err := r.db.WithContext(ctx).
		Where("day >= ?", oldest).
		Order("ts DESC").
		Limit(r.maxRows + 1).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list audit records failed: %w", err)
	}
	records, truncated := capRecords(records, r.maxRows)
	if truncated {
		r.log.Warn("audit feed truncated", "days", days, "max_rows", r.maxRows, "oldest_day", oldest)
	}

	entries := make([]model.AuditEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, rec.Entry())
	}
	return entries, nil
}

// capRecords keeps the first limit records and reports whether any were dropped.
func capRecords(records []model.AuditRecord, limit int) ([]model.AuditRecord, bool) {
	if limit <= 0 || len(records) <= limit {
		return records, false
	}
	return records[:limit], true
}
