package repository

import (
	"context"
	"time"

	"fitcrush/internal/domain"
	"fitcrush/internal/models"

	"gorm.io/gorm"
)

// FeedFilters narrows the browsing feed.
type FeedFilters struct {
	Gender       string
	MinAge       *int
	MaxAge       *int
	City         string
	WorkoutStyle string
	Limit        int
	Offset       int
}

// FeedRepository lists candidate profiles for the browsing feed. Users already
// crushed by the viewer and blocked pairs in either direction are excluded.
type FeedRepository struct {
	db *gorm.DB
}

func NewFeedRepository(db *gorm.DB) *FeedRepository {
	return &FeedRepository{db: db}
}

func (r *FeedRepository) Candidates(ctx context.Context, viewer *models.User, f FeedFilters, now time.Time) ([]models.User, error) {
	if f.Limit <= 0 || f.Limit > 50 {
		f.Limit = 20
	}
	sent := r.db.Model(&models.OutboundEdge{}).Select("to_user_id").Where("from_user_id = ?", viewer.ID)
	blockedByMe := r.db.Model(&models.Block{}).Select("blocked_id").Where("blocker_id = ?", viewer.ID)
	blockedMe := r.db.Model(&models.Block{}).Select("blocker_id").Where("blocked_id = ?", viewer.ID)

	q := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id <> ?", viewer.ID).
		Where("id NOT IN (?)", sent).
		Where("id NOT IN (?)", blockedByMe).
		Where("id NOT IN (?)", blockedMe)

	gender := f.Gender
	if gender == "" {
		switch viewer.InterestedIn {
		case domain.InterestedInMen:
			gender = domain.GenderMale
		case domain.InterestedInWomen:
			gender = domain.GenderFemale
		}
	}
	if gender != "" {
		q = q.Where("gender = ?", gender)
	}
	if f.MinAge != nil {
		q = q.Where("date_of_birth <= ?", now.AddDate(-*f.MinAge, 0, 0))
	}
	if f.MaxAge != nil {
		q = q.Where("date_of_birth > ?", now.AddDate(-(*f.MaxAge+1), 0, 0))
	}
	if f.City != "" {
		q = q.Where("city = ?", f.City)
	}
	if s := f.WorkoutStyle; s != "" {
		// workout_styles is a comma-separated list
		q = q.Where("(workout_styles = ? OR workout_styles LIKE ? OR workout_styles LIKE ? OR workout_styles LIKE ?)",
			s, s+",%", "%,"+s, "%,"+s+",%")
	}

	var list []models.User
	err := q.Order("last_active_at DESC, id DESC").Limit(f.Limit).Offset(f.Offset).Find(&list).Error
	return list, err
}
