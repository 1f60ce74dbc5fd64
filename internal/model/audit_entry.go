package model

import (
	"time"
)

// TimestampLayout matches JavaScript's Date.toISOString, which existing log files use.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// AuditEntry is one logged question/answer exchange. The JSON keys are the
// on-disk layout of the day-partition files.
type AuditEntry struct {
	Timestamp string `json:"ts"`
	Path      string `json:"path,omitempty"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Confident bool   `json:"confident"`
	UserAgent string `json:"ua"`
}

// FormatTimestamp renders t in TimestampLayout after converting it to UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Day returns the UTC calendar day (YYYY-MM-DD) the entry belongs to. An
// unparseable timestamp falls back to its first ten characters, and to the
// current day when even that is unavailable.
func (e AuditEntry) Day() string {
	if t, err := time.Parse(time.RFC3339Nano, e.Timestamp); err == nil {
		return t.UTC().Format(time.DateOnly)
	}
	if len(e.Timestamp) >= 10 {
		if _, err := time.Parse(time.DateOnly, e.Timestamp[:10]); err == nil {
			return e.Timestamp[:10]
		}
	}
	return time.Now().UTC().Format(time.DateOnly)
}
