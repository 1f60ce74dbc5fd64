package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"portfolio-agent/internal/model"
	mysqlClient "portfolio-agent/internal/platform/mysql"
)

func openTestDB(t *testing.T) *AuditRepository {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("set TEST_MYSQL_DSN to run MySQL repository tests")
	}
	db, err := mysqlClient.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open mysql: %v", err)
	}
	if err := mysqlClient.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Exec("DELETE FROM audit_entries").Error; err != nil {
		t.Fatalf("clean table: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewAuditRepository(db, nil)
}

func TestCapRecords(t *testing.T) {
	records := make([]model.AuditRecord, 5)
	for i := range records {
		records[i].ID = string(rune('a' + i))
	}

	got, truncated := capRecords(records, 3)
	if !truncated || len(got) != 3 || got[2].ID != "c" {
		t.Fatalf("got %d records, truncated=%v", len(got), truncated)
	}
	if got, truncated := capRecords(records, 5); truncated || len(got) != 5 {
		t.Fatalf("exact limit: %d records, truncated=%v", len(got), truncated)
	}
	if got, truncated := capRecords(records, 0); truncated || len(got) != 5 {
		t.Fatalf("no limit: %d records, truncated=%v", len(got), truncated)
	}
}

func TestAuditRepositoryRecentTruncatesToNewest(t *testing.T) {
	repo := openTestDB(t)
	repo.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }
	repo.maxRows = 2
	ctx := context.Background()

	for _, ts := range []string{"2024-05-10T08:00:00.000Z", "2024-05-10T09:00:00.000Z", "2024-05-10T10:00:00.000Z"} {
		if err := repo.Append(ctx, model.AuditEntry{Timestamp: ts, Question: "q", Answer: "a"}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	items, err := repo.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(items) != 2 || items[0].Timestamp != "2024-05-10T10:00:00.000Z" {
		t.Fatalf("items = %+v", items)
	}
}

func TestAuditRepositoryAppendAndRecent(t *testing.T) {
	repo := openTestDB(t)
	repo.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	for _, ts := range []string{"2024-05-10T08:00:00.000Z", "2024-05-01T08:00:00.000Z", "2024-05-09T09:30:00.000Z"} {
		if err := repo.Append(ctx, model.AuditEntry{Timestamp: ts, Question: "q " + ts, Answer: "a"}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	items, err := repo.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2 (entry outside window excluded)", len(items))
	}
	if items[0].Timestamp != "2024-05-10T08:00:00.000Z" {
		t.Fatalf("first item = %q", items[0].Timestamp)
	}
}
