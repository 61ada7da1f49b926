package repository

import (
	"time"

	"fitcrush/internal/models"

	"gorm.io/gorm"
)

// profileColumns are the user columns a profile edit may touch. Ledger columns
// are written only by LedgerRepository.
var profileColumns = map[string]bool{
	"display_name": true, "bio": true, "gender": true, "interested_in": true,
	"city": true, "gym": true, "fitness_goals": true, "workout_styles": true,
	"activity_level": true, "height_cm": true, "date_of_birth": true,
	"email_notifications": true, "fcm_token": true, "main_photo_url": true,
	"password_hash": true, "google_id": true,
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *models.User) error {
	return r.db.Create(u).Error
}

// CreateTx inserts inside an existing transaction.
func (r *UserRepository) CreateTx(tx *gorm.DB, u *models.User) error {
	return tx.Create(u).Error
}

func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var u models.User
	err := r.db.First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var u models.User
	err := r.db.Where("email = ?", email).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	var u models.User
	err := r.db.Where("username = ?", username).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByGoogleID(googleID string) (*models.User, error) {
	var u models.User
	err := r.db.Where("google_id = ?", googleID).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByReferralCode(code string) (*models.User, error) {
	var u models.User
	err := r.db.Where("referral_code = ?", code).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListByIDs loads users for profile summaries, keyed by id.
func (r *UserRepository) ListByIDs(ids []uint) (map[uint]models.User, error) {
	out := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []models.User
	if err := r.db.Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, u := range list {
		out[u.ID] = u
	}
	return out, nil
}

// UpdateFields applies a partial update limited to profile columns.
func (r *UserRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	clean := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if profileColumns[k] {
			clean[k] = v
		}
	}
	if len(clean) == 0 {
		return nil
	}
	return r.db.Model(&models.User{}).Where("id = ?", id).Updates(clean).Error
}

func (r *UserRepository) Touch(id uint, at time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_active_at", at).Error
}

func (r *UserRepository) Exists(id uint) (bool, error) {
	var n int64
	err := r.db.Model(&models.User{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}
