package repository

import (
	"fitcrush/internal/models"

	"gorm.io/gorm"
)

type PhotoRepository struct {
	db *gorm.DB
}

func NewPhotoRepository(db *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

func (r *PhotoRepository) Create(p *models.ProfilePhoto) error {
	return r.db.Create(p).Error
}

func (r *PhotoRepository) Count(userID uint) (int64, error) {
	var c int64
	err := r.db.Model(&models.ProfilePhoto{}).Where("user_id = ?", userID).Count(&c).Error
	return c, err
}

func (r *PhotoRepository) ListByUserID(userID uint) ([]models.ProfilePhoto, error) {
	var list []models.ProfilePhoto
	err := r.db.Where("user_id = ?", userID).Order("position ASC, id ASC").Find(&list).Error
	return list, err
}

func (r *PhotoRepository) Get(id, userID uint) (*models.ProfilePhoto, error) {
	var p models.ProfilePhoto
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SetMain flags one photo as main and mirrors its URL onto the user row.
func (r *PhotoRepository) SetMain(userID uint, p *models.ProfilePhoto) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ProfilePhoto{}).Where("user_id = ?", userID).Update("is_main", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ProfilePhoto{}).Where("id = ?", p.ID).Update("is_main", true).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).UpdateColumn("main_photo_url", p.URL).Error
	})
}

// Delete removes the photo. When it was the main photo the next one in order
// is promoted, or the user's main photo is cleared.
func (r *PhotoRepository) Delete(userID uint, p *models.ProfilePhoto) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ProfilePhoto{}, p.ID).Error; err != nil {
			return err
		}
		if !p.IsMain {
			return nil
		}
		var next models.ProfilePhoto
		err := tx.Where("user_id = ?", userID).Order("position ASC, id ASC").Limit(1).Find(&next).Error
		if err != nil {
			return err
		}
		if next.ID == 0 {
			return tx.Model(&models.User{}).Where("id = ?", userID).UpdateColumn("main_photo_url", "").Error
		}
		if err := tx.Model(&models.ProfilePhoto{}).Where("id = ?", next.ID).Update("is_main", true).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).UpdateColumn("main_photo_url", next.URL).Error
	})
}
