package service

import (
	"errors"

	"fitcrush/internal/domain"
	"fitcrush/internal/models"
	"fitcrush/internal/repository"

	"gorm.io/gorm"
)

// ReferralService reports what a user's referral code has earned. Credits are
// applied at signup by AuthService.
type ReferralService struct {
	referralRepo *repository.ReferralRepository
	userRepo     *repository.UserRepository
}

func NewReferralService(referralRepo *repository.ReferralRepository, userRepo *repository.UserRepository) *ReferralService {
	return &ReferralService{referralRepo: referralRepo, userRepo: userRepo}
}

type ReferralStats struct {
	Code          string                 `json:"code"`
	Referred      int64                  `json:"referred"`
	CrushesEarned int64                  `json:"crushes_earned"`
	Recent        []models.PublicProfile `json:"recent"`
}

func (s *ReferralService) Stats(userID uint) (*ReferralStats, error) {
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	count, crushes, err := s.referralRepo.Stats(userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.referralRepo.ListByReferrerID(userID, 10, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(recent))
	for _, r := range recent {
		ids = append(ids, r.ReferredUserID)
	}
	users, err := s.userRepo.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	stats := &ReferralStats{Code: u.ReferralCode, Referred: count, CrushesEarned: crushes, Recent: []models.PublicProfile{}}
	for _, r := range recent {
		if ru, ok := users[r.ReferredUserID]; ok {
			stats.Recent = append(stats.Recent, models.PublicProfile{ID: ru.ID, Username: ru.Username, DisplayName: ru.Name(), MainPhotoURL: ru.MainPhotoURL})
		}
	}
	return stats, nil
}
