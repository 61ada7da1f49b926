package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fitcrush/config"
	"fitcrush/internal/auth"
	"fitcrush/internal/domain"
	"fitcrush/internal/models"
	"fitcrush/internal/repository"
)

func newAuth(t *testing.T, s *services) *AuthService {
	t.Helper()
	cfg := &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:  "access",
			RefreshSecret: "refresh",
			AccessExpiry:  time.Hour,
			RefreshExpiry: 24 * time.Hour,
			Issuer:        "fitcrush-test",
		},
		Ledger: config.LedgerConfig{WelcomeCrushes: 5, ReferralCrushes: 2},
	}
	return NewAuthService(cfg, s.db, s.users, s.ledger, repository.NewReferralRepository(s.db))
}

func adultDOB() time.Time {
	return time.Now().AddDate(-25, 0, 0)
}

func TestRegisterGrantsWelcomeCrushes(t *testing.T) {
	s := newServices(t)
	svc := newAuth(t, s)

	u, tokens, err := svc.Register(context.Background(), RegisterInput{
		Email:       "  Alice@Example.com ",
		Username:    "alice",
		Password:    "hunter22",
		DateOfBirth: adultDOB(),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("email = %q", u.Email)
	}
	if u.CrushBalance != domain.DefaultCrushBalance || balanceOf(t, s.db, u.ID) != domain.DefaultCrushBalance {
		t.Fatalf("balance = %d", u.CrushBalance)
	}
	if len(u.ReferralCode) != 8 {
		t.Fatalf("referral code = %q", u.ReferralCode)
	}
	claims, err := auth.ParseAccessToken(&svc.cfg.JWT, tokens.AccessToken)
	if err != nil || claims.UserID != u.ID {
		t.Fatalf("access token: claims=%+v err=%v", claims, err)
	}

	history, err := s.ledger.History(context.Background(), u.ID, 10, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Kind != domain.TxBonus || history[0].Delta != 5 {
		t.Fatalf("history = %+v", history)
	}
}

func TestRegisterRejections(t *testing.T) {
	s := newServices(t)
	svc := newAuth(t, s)
	ctx := context.Background()
	if _, _, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Username: "alice", Password: "hunter22", DateOfBirth: adultDOB()}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"minor", RegisterInput{Email: "kid@example.com", Username: "kid", Password: "hunter22", DateOfBirth: time.Now().AddDate(-17, 0, 0)}, domain.ErrAgeRequired},
		{"email taken", RegisterInput{Email: "A@example.com", Username: "other", Password: "hunter22", DateOfBirth: adultDOB()}, domain.ErrEmailExists},
		{"username taken", RegisterInput{Email: "b@example.com", Username: "alice", Password: "hunter22", DateOfBirth: adultDOB()}, domain.ErrUsernameExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.Register(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

// create is reached after the pre-insert lookup, so calling it directly
// stands in for a concurrent signup that claimed the column first.
func TestCreateReportsCollidingColumn(t *testing.T) {
	s := newServices(t)
	svc := newAuth(t, s)
	ctx := context.Background()
	createUser(t, s.db, "alice")

	tests := []struct {
		name     string
		email    string
		username string
		want     error
	}{
		{"username taken", "fresh@example.com", "alice", domain.ErrUsernameExists},
		{"email taken", "alice@example.com", "fresh", domain.ErrEmailExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &models.User{Email: tt.email, Username: tt.username, LastActiveAt: time.Now()}
			if err := svc.create(ctx, u, nil); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	var n int64
	s.db.Model(&models.User{}).Count(&n)
	if n != 1 {
		t.Fatalf("users = %d, want 1", n)
	}
}

func TestRegisterWithReferralCreditsReferrer(t *testing.T) {
	s := newServices(t)
	svc := newAuth(t, s)
	ctx := context.Background()
	referrer := createUser(t, s.db, "coach")

	u, _, err := svc.Register(ctx, RegisterInput{
		Email:        "newbie@example.com",
		Username:     "newbie",
		Password:     "hunter22",
		DateOfBirth:  adultDOB(),
		ReferralCode: "coach",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.ReferredByID == nil || *u.ReferredByID != referrer.ID {
		t.Fatalf("referred by = %v", u.ReferredByID)
	}
	if got := balanceOf(t, s.db, referrer.ID); got != 7 {
		t.Fatalf("referrer balance = %d, want 7", got)
	}

	stats, err := NewReferralService(repository.NewReferralRepository(s.db), s.users).Stats(referrer.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Referred != 1 || stats.CrushesEarned != 2 || len(stats.Recent) != 1 || stats.Recent[0].ID != u.ID {
		t.Fatalf("stats = %+v", stats)
	}

	// an unknown code is ignored rather than failing signup
	other, _, err := svc.Register(ctx, RegisterInput{Email: "x@example.com", Username: "x", Password: "hunter22", DateOfBirth: adultDOB(), ReferralCode: "NOPE"})
	if err != nil {
		t.Fatalf("register with unknown code: %v", err)
	}
	if other.ReferredByID != nil {
		t.Fatal("unknown code must not set a referrer")
	}
}

func TestLoginAndRefresh(t *testing.T) {
	s := newServices(t)
	svc := newAuth(t, s)
	ctx := context.Background()
	if _, _, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Username: "alice", Password: "hunter22", DateOfBirth: adultDOB()}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login("a@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCreds) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, _, err := svc.Login("nobody@example.com", "hunter22"); !errors.Is(err, domain.ErrInvalidCreds) {
		t.Fatalf("unknown email: got %v", err)
	}
	u, tokens, err := svc.Login("A@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.RefreshToken(tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := auth.ParseAccessToken(&svc.cfg.JWT, refreshed.AccessToken)
	if err != nil || claims.UserID != u.ID {
		t.Fatalf("refreshed token: %+v %v", claims, err)
	}
	if _, err := svc.RefreshToken(tokens.AccessToken); err == nil {
		t.Fatal("an access token must not work as a refresh token")
	}

	if err := svc.ChangePassword(u.ID, "wrong", "newpass1"); !errors.Is(err, domain.ErrInvalidCreds) {
		t.Fatalf("change with wrong password: got %v", err)
	}
	if err := svc.ChangePassword(u.ID, "hunter22", "newpass1"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, _, err := svc.Login("a@example.com", "newpass1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestLoginWithGoogle(t *testing.T) {
	s := newServices(t)
	svc := newAuth(t, s)
	ctx := context.Background()
	profile := GoogleProfile{ID: "g-123", Email: "runner@example.com", Name: "Trail Runner"}

	u, _, isNew, err := svc.LoginWithGoogle(ctx, profile, "")
	if err != nil {
		t.Fatalf("first google login: %v", err)
	}
	if !isNew || u.Username != "trail_runner" || u.CrushBalance != domain.DefaultCrushBalance {
		t.Fatalf("new google user = %+v isNew=%v", u, isNew)
	}

	again, _, isNew, err := svc.LoginWithGoogle(ctx, profile, "")
	if err != nil {
		t.Fatalf("second google login: %v", err)
	}
	if isNew || again.ID != u.ID {
		t.Fatalf("second login created a new account: %d vs %d", again.ID, u.ID)
	}

	if err := svc.ChangePassword(u.ID, "", "whatever1"); !errors.Is(err, ErrGoogleAccount) {
		t.Fatalf("google account password change: got %v", err)
	}

	// same name, different account
	other, _, _, err := svc.LoginWithGoogle(ctx, GoogleProfile{ID: "g-456", Email: "tr2@example.com", Name: "Trail Runner"}, "")
	if err != nil {
		t.Fatalf("third google login: %v", err)
	}
	if other.Username == u.Username {
		t.Fatalf("username collision: %q", other.Username)
	}
	var n int64
	s.db.Model(&models.User{}).Count(&n)
	if n != 2 {
		t.Fatalf("users = %d, want 2", n)
	}
}
