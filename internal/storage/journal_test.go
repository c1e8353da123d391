package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "journal.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}

	j := NewJournal(db, zerolog.Nop())
	if err := j.AutoMigrate(); err != nil {
		t.Fatalf("auto-migrate failed: %v", err)
	}
	return j
}

func TestJournalRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	j.Record(ctx, DeliveryRecord{
		MessageID: "msg-1",
		QueueName: "orders",
		Handler:   "processOrder",
		Action:    ActionRedrive,
		Attempts:  3,
		Reason:    "handler failed: boom",
	})
	j.Record(ctx, DeliveryRecord{
		MessageID: "msg-2",
		QueueName: "payments",
		Handler:   "processPayment",
		Action:    ActionExhausted,
		Attempts:  5,
		Reason:    "handler timed out",
	})

	records, err := j.Recent(ctx, "orders", 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record for orders, got %d", len(records))
	}
	if records[0].Action != ActionRedrive {
		t.Errorf("expected action '%s', got '%s'", ActionRedrive, records[0].Action)
	}
	if records[0].Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", records[0].Attempts)
	}

	all, err := j.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 records across queues, got %d", len(all))
	}
}

func TestJournalCleanup(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	old := DeliveryRecord{
		MessageID: "msg-old",
		QueueName: "orders",
		Action:    ActionRedrive,
		CreatedAt: time.Now().AddDate(0, 0, -30),
	}
	if err := j.db.Create(&old).Error; err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	j.Record(ctx, DeliveryRecord{MessageID: "msg-new", QueueName: "orders", Action: ActionRedrive})

	deleted, err := j.Cleanup(ctx, 7)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted record, got %d", deleted)
	}

	remaining, _ := j.Recent(ctx, "orders", 10)
	if len(remaining) != 1 {
		t.Errorf("expected 1 remaining record, got %d", len(remaining))
	}
}

func TestNilJournalIsSafe(t *testing.T) {
	ctx := context.Background()
	var j *Journal

	j.Record(ctx, DeliveryRecord{MessageID: "msg-1"})

	if err := j.AutoMigrate(); err != nil {
		t.Errorf("expected nil journal auto-migrate to be a no-op, got %v", err)
	}
	if _, err := j.Recent(ctx, "", 10); err != nil {
		t.Errorf("expected nil journal recent to be a no-op, got %v", err)
	}
	if _, err := j.Cleanup(ctx, 7); err != nil {
		t.Errorf("expected nil journal cleanup to be a no-op, got %v", err)
	}
}
