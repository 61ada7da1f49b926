package repository

import (
	"context"
	"time"
	"unicode/utf8"

	"fitcrush/internal/models"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Create(ctx context.Context, tx *gorm.DB, evt *models.OutboxEvent) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(evt).Error
}

// Due returns pending events whose next attempt time has passed, oldest first.
func (r *OutboxRepository) Due(ctx context.Context, now time.Time, limit int) ([]models.OutboxEvent, error) {
	var list []models.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", models.OutboxPending, now).
		Order("next_attempt_at ASC, id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": models.OutboxSent, "sent_at": at, "last_error": ""}).Error
}

func (r *OutboxRepository) ScheduleRetry(ctx context.Context, id uint, next time.Time, lastErr string) error {
	return r.db.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"retry_count":     gorm.Expr("retry_count + 1"),
			"next_attempt_at": next,
			"last_error":      truncate(lastErr, 512),
		}).Error
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id uint, lastErr string) error {
	return r.db.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      models.OutboxFailed,
			"retry_count": gorm.Expr("retry_count + 1"),
			"last_error":  truncate(lastErr, 512),
		}).Error
}

func (r *OutboxRepository) Get(ctx context.Context, id uint) (*models.OutboxEvent, error) {
	var evt models.OutboxEvent
	if err := r.db.WithContext(ctx).First(&evt, id).Error; err != nil {
		return nil, err
	}
	return &evt, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
