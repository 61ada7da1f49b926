package repository

import (
	"fitcrush/internal/models"

	"gorm.io/gorm"
)

type ReferralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// CreateReferral persists a new referral relationship inside tx.
func (r *ReferralRepository) CreateReferral(tx *gorm.DB, referral *models.Referral) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Create(referral).Error
}

// GetReferralByReferredUserID returns the Referral record for a user that was referred by someone.
func (r *ReferralRepository) GetReferralByReferredUserID(userID uint) (*models.Referral, error) {
	var ref models.Referral
	err := r.db.Where("referred_user_id = ?", userID).First(&ref).Error
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// ListByReferrerID returns referrals created by the given referrer, newest first.
func (r *ReferralRepository) ListByReferrerID(referrerID uint, limit, offset int) ([]models.Referral, error) {
	var list []models.Referral
	err := r.db.Where("referrer_id = ?", referrerID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

// Stats returns how many users joined with the code and the crushes earned.
func (r *ReferralRepository) Stats(referrerID uint) (count int64, crushes int64, err error) {
	var row struct {
		Count   int64
		Crushes int64
	}
	err = r.db.Model(&models.Referral{}).
		Select("COUNT(*) AS count, COALESCE(SUM(bonus_crushes), 0) AS crushes").
		Where("referrer_id = ?", referrerID).
		Scan(&row).Error
	return row.Count, row.Crushes, err
}
