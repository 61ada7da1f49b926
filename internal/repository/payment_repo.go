package repository

import (
	"context"
	"errors"
	"time"

	"fitcrush/internal/domain"
	"fitcrush/internal/models"

	"gorm.io/gorm"
)

var ErrPaymentNotFound = errors.New("payment not found")

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByReference(ctx context.Context, tx *gorm.DB, ref string) (*models.Payment, error) {
	if tx == nil {
		tx = r.db
	}
	var p models.Payment
	err := tx.WithContext(ctx).Where("reference = ?", ref).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) SetCheckout(ctx context.Context, id uint, providerRef, checkoutURL string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"provider_ref": providerRef, "checkout_url": checkoutURL}).Error
}

// MarkCompleted moves a PENDING payment to COMPLETED. It returns false when the
// payment was already settled, which makes webhook replays harmless.
func (r *PaymentRepository) MarkCompleted(ctx context.Context, tx *gorm.DB, ref, providerRef string, at time.Time) (bool, error) {
	result := tx.WithContext(ctx).
		Model(&models.Payment{}).
		Where("reference = ? AND status = ?", ref, domain.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":       domain.PaymentStatusCompleted,
			"provider_ref": providerRef,
			"completed_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, ref string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("reference = ? AND status = ?", ref, domain.PaymentStatusPending).
		Update("status", domain.PaymentStatusFailed)
	return result.RowsAffected == 1, result.Error
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}
