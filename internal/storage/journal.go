package storage

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Journal action values.
const (
	ActionRedrive   = "redrive"
	ActionExhausted = "exhausted"
)

// DeliveryRecord is one row in the delivery journal: a message that was
// redriven to a DLQ or that exhausted its retry budget without one.
type DeliveryRecord struct {
	ID        uint   `gorm:"primaryKey"`
	MessageID string `gorm:"size:128;index"`
	QueueName string `gorm:"size:128;index"`
	Handler   string `gorm:"size:255"`
	Action    string `gorm:"size:32"`
	Attempts  int
	Reason    string `gorm:"size:1024"`
	CreatedAt time.Time
}

// TableName sets the table name for delivery records.
func (DeliveryRecord) TableName() string {
	return "delivery_journal"
}

// Journal persists delivery failures for later inspection. It is optional;
// a nil *Journal is safe to call and does nothing.
type Journal struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewJournal creates a new delivery journal.
func NewJournal(db *gorm.DB, logger zerolog.Logger) *Journal {
	return &Journal{
		db:     db,
		logger: logger.With().Str("component", "journal").Logger(),
	}
}

// AutoMigrate creates the journal table if it does not exist.
func (j *Journal) AutoMigrate() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.AutoMigrate(&DeliveryRecord{})
}

// Record writes one journal row. Failures are logged, never propagated; the
// journal must not affect delivery behavior.
func (j *Journal) Record(ctx context.Context, rec DeliveryRecord) {
	if j == nil || j.db == nil {
		return
	}
	if err := j.db.WithContext(ctx).Create(&rec).Error; err != nil {
		j.logger.Warn().
			Str("message_id", rec.MessageID).
			Str("queue", rec.QueueName).
			Err(err).
			Msg("Failed to write delivery journal record")
	}
}

// Recent returns the most recent journal rows for a queue. An empty queue
// name returns rows across all queues.
func (j *Journal) Recent(ctx context.Context, queueName string, limit int) ([]DeliveryRecord, error) {
	if j == nil || j.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	q := j.db.WithContext(ctx).Order("created_at desc").Limit(limit)
	if queueName != "" {
		q = q.Where("queue_name = ?", queueName)
	}

	var records []DeliveryRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Cleanup removes journal rows older than the given number of days and
// returns how many were deleted.
func (j *Journal) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	if j == nil || j.db == nil {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	result := j.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&DeliveryRecord{})
	return result.RowsAffected, result.Error
}
