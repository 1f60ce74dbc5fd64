// Package auditlog stores question/answer exchanges as one JSON-lines file per
// UTC day in a GitHub repository.
package auditlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"portfolio-agent/internal/model"
	"portfolio-agent/internal/pkg/answertext"
	"portfolio-agent/internal/platform/github"
	"portfolio-agent/internal/platform/logger"
)

const (
	DefaultDir      = "data/audit"
	DefaultDays     = 14
	defaultAttempts = 3
	fetchLimit      = 4
)

// ContentsAPI is the subset of the GitHub contents client the store needs.
type ContentsAPI interface {
	GetFile(ctx context.Context, path string) (*github.File, error)
	PutFile(ctx context.Context, path, message string, content []byte, sha string) error
}

type Options struct {
	Dir         string
	Days        int
	MaxAttempts int
}

type Store struct {
	api         ContentsAPI
	dir         string
	days        int
	maxAttempts int
	log         *logger.Logger
	now         func() time.Time
}

// NewStore returns a store writing under opts.Dir. A nil api yields an
// unconfigured store.
func NewStore(api ContentsAPI, opts Options, log *logger.Logger) *Store {
	if strings.TrimSpace(opts.Dir) == "" {
		opts.Dir = DefaultDir
	}
	if opts.Days <= 0 {
		opts.Days = DefaultDays
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultAttempts
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		api:         api,
		dir:         strings.Trim(opts.Dir, "/"),
		days:        opts.Days,
		maxAttempts: opts.MaxAttempts,
		log:         log,
		now:         time.Now,
	}
}

func (s *Store) Configured() bool {
	return s != nil && s.api != nil
}

// DayPath returns the partition file for a UTC date (YYYY-MM-DD).
func (s *Store) DayPath(day string) string {
	return path.Join(s.dir, "audit-"+day+".jsonl")
}

// Append adds entry as one line to its day file. The write carries the sha
// that was read, so a concurrent writer makes it fail with a conflict; the
// file is then read again and the line re-applied.
func (s *Store) Append(ctx context.Context, entry model.AuditEntry) error {
	if !s.Configured() {
		return nil
	}
	if entry.Timestamp == "" {
		entry.Timestamp = model.FormatTimestamp(s.now())
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry failed: %w", err)
	}
	filePath := s.DayPath(entry.Day())
	message := "audit: " + entry.Timestamp

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		var existing []byte
		sha := ""
		file, err := s.api.GetFile(ctx, filePath)
		switch {
		case errors.Is(err, github.ErrNotFound):
		case err != nil:
			return fmt.Errorf("read audit file failed: %w", err)
		default:
			existing = file.Content
			sha = file.SHA
		}

		err = s.api.PutFile(ctx, filePath, message, appendLine(existing, line), sha)
		if err == nil {
			return nil
		}
		if !errors.Is(err, github.ErrConflict) {
			return fmt.Errorf("write audit file failed: %w", err)
		}
		lastErr = err
		s.log.Debug("audit append conflict, retrying", "path", filePath, "attempt", attempt)
	}
	return fmt.Errorf("write audit file failed after %d attempts: %w", s.maxAttempts, lastErr)
}

// Recent returns the entries of the last days UTC days, newest first.
// days <= 0 uses the configured default.
func (s *Store) Recent(ctx context.Context, days int) ([]model.AuditEntry, error) {
	if !s.Configured() {
		return nil, nil
	}
	if days <= 0 {
		days = s.days
	}
	now := s.now().UTC()
	perDay := make([][]model.AuditEntry, days)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)
	for i := 0; i < days; i++ {
		i := i
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		g.Go(func() error {
			file, err := s.api.GetFile(gctx, s.DayPath(day))
			if errors.Is(err, github.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read audit day %s failed: %w", day, err)
			}
			perDay[i] = s.parseLines(file.Content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]model.AuditEntry, 0)
	for _, entries := range perDay {
		items = append(items, entries...)
	}
	SortNewestFirst(items)
	return items, nil
}

// SortNewestFirst orders entries by timestamp string, descending.
func SortNewestFirst(items []model.AuditEntry) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp > items[j].Timestamp
	})
}

type storedLine struct {
	Timestamp string `json:"ts"`
	Path      string `json:"path"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Confident *bool  `json:"confident"`
	UserAgent string `json:"ua"`
}

func (s *Store) parseLines(content []byte) []model.AuditEntry {
	var out []model.AuditEntry
	for _, raw := range bytes.Split(content, []byte("\n")) {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}
		var line storedLine
		if err := json.Unmarshal(raw, &line); err != nil {
			continue
		}
		out = append(out, s.normalize(line))
	}
	return out
}

func (s *Store) normalize(line storedLine) model.AuditEntry {
	entry := model.AuditEntry{
		Timestamp: line.Timestamp,
		Path:      line.Path,
		Question:  line.Question,
		Answer:    line.Answer,
		UserAgent: line.UserAgent,
	}
	if entry.Timestamp == "" {
		entry.Timestamp = model.FormatTimestamp(s.now())
	}
	if line.Confident != nil {
		entry.Confident = *line.Confident
	} else {
		entry.Confident = answertext.IsConfident(line.Answer)
	}
	return entry
}

func appendLine(existing, line []byte) []byte {
	out := make([]byte, 0, len(existing)+len(line)+2)
	out = append(out, existing...)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	out = append(out, line...)
	return append(out, '\n')
}
