package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"fitcrush/config"
	"fitcrush/internal/auth"
	"fitcrush/internal/database"
	"fitcrush/internal/domain"
	"fitcrush/internal/models"
	"fitcrush/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrGoogleAccount = &domain.Error{Code: "google_account", Message: "account uses Google sign-in; set a password first", Status: 400}

// TokenPair is returned by every successful sign-in.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RegisterInput struct {
	Email        string
	Username     string
	Password     string
	DateOfBirth  time.Time
	ReferralCode string
}

type AuthService struct {
	cfg       *config.Config
	db        *gorm.DB
	userRepo  *repository.UserRepository
	ledger    *repository.LedgerRepository
	referrals *repository.ReferralRepository
	now       func() time.Time
}

func NewAuthService(cfg *config.Config, db *gorm.DB, userRepo *repository.UserRepository, ledger *repository.LedgerRepository, referrals *repository.ReferralRepository) *AuthService {
	return &AuthService{cfg: cfg, db: db, userRepo: userRepo, ledger: ledger, referrals: referrals, now: time.Now}
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Register creates an account holding the welcome crushes. A valid referral
// code credits the referrer in the same transaction.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, *TokenPair, error) {
	if !domain.IsAdult(in.DateOfBirth, s.now()) {
		return nil, nil, domain.ErrAgeRequired
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.ensureUnique(email, in.Username); err != nil {
		return nil, nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	var referrer *models.User
	if code := strings.TrimSpace(in.ReferralCode); code != "" {
		referrer, err = s.userRepo.GetByReferralCode(strings.ToUpper(code))
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
	}

	dob := in.DateOfBirth
	u := &models.User{
		Email:        email,
		Username:     in.Username,
		PasswordHash: string(hash),
		DateOfBirth:  &dob,
		LastActiveAt: s.now(),
	}
	if err := s.create(ctx, u, referrer); err != nil {
		return nil, nil, err
	}
	tokens, err := s.issue(u)
	if err != nil {
		return u, nil, err
	}
	return u, tokens, nil
}

func (s *AuthService) ensureUnique(email, username string) error {
	if _, err := s.userRepo.GetByEmail(email); err == nil {
		return domain.ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if _, err := s.userRepo.GetByUsername(username); err == nil {
		return domain.ErrUsernameExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

// create inserts the user, records the welcome bonus and applies the referral.
func (s *AuthService) create(ctx context.Context, u *models.User, referrer *models.User) error {
	welcome := s.cfg.Ledger.WelcomeCrushes
	if welcome <= 0 {
		welcome = domain.DefaultCrushBalance
	}
	u.CrushBalance = welcome
	u.ReferralCode = newReferralCode()
	if referrer != nil {
		id := referrer.ID
		u.ReferredByID = &id
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.CreateTx(tx, u); err != nil {
			return err
		}
		if err := s.ledger.Append(ctx, tx, &models.CrushTransaction{
			UserID:       u.ID,
			Kind:         domain.TxBonus,
			Delta:        welcome,
			BalanceAfter: welcome,
			Description:  "welcome crushes",
		}); err != nil {
			return err
		}
		if referrer == nil {
			return nil
		}
		bonus := s.cfg.Ledger.ReferralCrushes
		if err := s.referrals.CreateReferral(tx, &models.Referral{
			ReferrerID:     referrer.ID,
			ReferredUserID: u.ID,
			BonusCrushes:   bonus,
		}); err != nil {
			return err
		}
		if bonus <= 0 {
			return nil
		}
		_, err := s.ledger.Credit(ctx, tx, referrer.ID, bonus, domain.TxBonus,
			"referral bonus", fmt.Sprintf("referral:%d", u.ID))
		return err
	})
	if database.IsDuplicate(err) {
		// lost a signup race; report whichever column the winner took
		if uerr := s.ensureUnique(u.Email, u.Username); uerr != nil {
			return uerr
		}
		return fmt.Errorf("create user: %w", err)
	}
	if err != nil {
		return err
	}
	if referrer != nil {
		slog.Info("referral applied", "referrer_id", referrer.ID, "user_id", u.ID)
	}
	return nil
}

func (s *AuthService) Login(email, password string) (*models.User, *TokenPair, error) {
	u, err := s.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrInvalidCreds
		}
		return nil, nil, err
	}
	if u.PasswordHash == "" {
		return nil, nil, domain.ErrInvalidCreds
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, domain.ErrInvalidCreds
	}
	if err := s.userRepo.Touch(u.ID, s.now()); err != nil {
		slog.Warn("touch last active", "user_id", u.ID, "error", err)
	}
	tokens, err := s.issue(u)
	return u, tokens, err
}

// GoogleProfile is the identity returned by Google after sign-in.
type GoogleProfile struct {
	ID      string
	Email   string
	Name    string
	Picture string
}

var usernameUnsafe = regexp.MustCompile(`[^a-z0-9_]+`)

// LoginWithGoogle finds the user by Google id, links an existing email account,
// or creates a new account. isNew is true only for the last case.
func (s *AuthService) LoginWithGoogle(ctx context.Context, p GoogleProfile, referralCode string) (*models.User, *TokenPair, bool, error) {
	u, err := s.userRepo.GetByGoogleID(p.ID)
	if err == nil {
		tokens, err := s.issue(u)
		return u, tokens, false, err
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, false, err
	}

	email := strings.ToLower(strings.TrimSpace(p.Email))
	existing, err := s.userRepo.GetByEmail(email)
	if err == nil {
		if err := s.userRepo.UpdateFields(existing.ID, map[string]interface{}{"google_id": p.ID}); err != nil {
			return nil, nil, false, err
		}
		gid := p.ID
		existing.GoogleID = &gid
		tokens, err := s.issue(existing)
		return existing, tokens, false, err
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, false, err
	}

	var referrer *models.User
	if referralCode != "" {
		referrer, _ = s.userRepo.GetByReferralCode(strings.ToUpper(referralCode))
	}
	gid := p.ID
	u = &models.User{
		Email:        email,
		Username:     s.freeUsername(p.Name, email),
		GoogleID:     &gid,
		DisplayName:  p.Name,
		MainPhotoURL: p.Picture,
		LastActiveAt: s.now(),
	}
	if err := s.create(ctx, u, referrer); err != nil {
		return nil, nil, false, err
	}
	tokens, err := s.issue(u)
	return u, tokens, true, err
}

// freeUsername derives a handle from the Google name or email and appends a
// numeric suffix until it is unused.
func (s *AuthService) freeUsername(name, email string) string {
	base := strings.Split(email, "@")[0]
	if name != "" {
		base = strings.ReplaceAll(strings.ToLower(name), " ", "_")
	}
	base = usernameUnsafe.ReplaceAllString(strings.ToLower(base), "")
	if base == "" {
		base = "user"
	}
	if len(base) > 50 {
		base = base[:50]
	}
	candidate := base
	for i := 1; i < 100; i++ {
		if _, err := s.userRepo.GetByUsername(candidate); errors.Is(err, gorm.ErrRecordNotFound) {
			return candidate
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return fmt.Sprintf("%s%d", base, s.now().UnixNano()%1000000)
}

// ChangePassword requires the current password.
func (s *AuthService) ChangePassword(userID uint, currentPassword, newPassword string) error {
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		return domain.ErrInvalidCreds
	}
	if u.PasswordHash == "" {
		return ErrGoogleAccount
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)); err != nil {
		return domain.ErrInvalidCreds
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userRepo.UpdateFields(userID, map[string]interface{}{"password_hash": string(hash)})
}

func (s *AuthService) RefreshToken(refreshToken string) (*TokenPair, error) {
	userID, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return nil, err
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	return s.issue(u)
}

func (s *AuthService) issue(u *models.User) (*TokenPair, error) {
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
