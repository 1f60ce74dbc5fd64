package model

import "time"

// AuditRecord is the MySQL row for an AuditEntry.
type AuditRecord struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Day       string    `gorm:"size:10;not null;index" json:"day"`
	Timestamp string    `gorm:"column:ts;size:32;not null;index" json:"ts"`
	Path      string    `gorm:"size:512" json:"path"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	Confident bool      `gorm:"not null" json:"confident"`
	UserAgent string    `gorm:"column:ua;size:512" json:"ua"`
	CreatedAt time.Time `json:"created_at"`
}

func (AuditRecord) TableName() string {
	return "audit_entries"
}

func (r AuditRecord) Entry() AuditEntry {
	return AuditEntry{
		Timestamp: r.Timestamp,
		Path:      r.Path,
		Question:  r.Question,
		Answer:    r.Answer,
		Confident: r.Confident,
		UserAgent: r.UserAgent,
	}
}
