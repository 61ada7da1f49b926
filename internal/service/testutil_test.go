package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"fitcrush/config"
	"fitcrush/internal/database"
	"fitcrush/internal/models"
	"fitcrush/internal/repository"
	"fitcrush/pkg/limits"
	"fitcrush/pkg/mail"

	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.NewDB(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		ReferralCode: strings.ToUpper(username),
		CrushBalance: 5,
		LastActiveAt: time.Now(),
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func setBalance(t *testing.T, db *gorm.DB, userID uint, balance int) {
	t.Helper()
	if err := db.Model(&models.User{}).Where("id = ?", userID).UpdateColumn("crush_balance", balance).Error; err != nil {
		t.Fatalf("set balance: %v", err)
	}
}

func makeSubscriber(t *testing.T, db *gorm.DB, userID uint) {
	t.Helper()
	end := time.Now().Add(30 * 24 * time.Hour)
	err := db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"subscription_active":     true,
		"subscription_plan":       "premium_monthly",
		"subscription_period_end": end,
	}).Error
	if err != nil {
		t.Fatalf("make subscriber: %v", err)
	}
}

func balanceOf(t *testing.T, db *gorm.DB, userID uint) int {
	t.Helper()
	var u models.User
	if err := db.First(&u, userID).Error; err != nil {
		t.Fatalf("load user %d: %v", userID, err)
	}
	return u.CrushBalance
}

func outboxOf(t *testing.T, db *gorm.DB, eventType string) []models.OutboxEvent {
	t.Helper()
	var list []models.OutboxEvent
	if err := db.Where("type = ?", eventType).Order("id").Find(&list).Error; err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	return list
}

type fakeRelay struct {
	mu     sync.Mutex
	frames map[uint][]interface{}
	online map[uint]bool
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{frames: map[uint][]interface{}{}, online: map[uint]bool{}}
}

func (r *fakeRelay) BroadcastToUser(userID uint, payload interface{}) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames[userID] = append(r.frames[userID], payload)
	if r.online[userID] {
		return 1
	}
	return 0
}

func (r *fakeRelay) IsOnline(userID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online[userID]
}

func (r *fakeRelay) count(userID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames[userID])
}

type fakePusher struct {
	mu    sync.Mutex
	sent  []string
	err   error
	calls int
}

func (p *fakePusher) Push(_ context.Context, token, notifType, title, body string, data map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, notifType)
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type services struct {
	db       *gorm.DB
	ledger   *repository.LedgerRepository
	interest *repository.InterestRepository
	users    *repository.UserRepository
	blocks   *repository.BlockRepository
	outbox   *repository.OutboxRepository
	matches  *MatchService
	crushes  *CrushService
	messages *MessageService
	relay    *fakeRelay
}

func newServices(t *testing.T) *services {
	t.Helper()
	db := newTestDB(t)
	s := &services{
		db:       db,
		ledger:   repository.NewLedgerRepository(db),
		interest: repository.NewInterestRepository(db),
		users:    repository.NewUserRepository(db),
		blocks:   repository.NewBlockRepository(db),
		outbox:   repository.NewOutboxRepository(db),
		relay:    newFakeRelay(),
	}
	s.matches = NewMatchService(s.interest)
	s.crushes = NewCrushService(db, s.ledger, s.interest, s.matches, s.users, s.blocks, s.outbox)
	s.messages = NewMessageService(db, repository.NewMessageRepository(db), s.matches, s.users, s.blocks, s.outbox, limits.NewMemoryCounter(), s.relay)
	return s
}

// match makes a and b mutual.
func (s *services) match(t *testing.T, a, b uint) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.crushes.SendCrush(ctx, a, b); err != nil {
		t.Fatalf("crush %d->%d: %v", a, b, err)
	}
	res, err := s.crushes.SendCrush(ctx, b, a)
	if err != nil {
		t.Fatalf("crush %d->%d: %v", b, a, err)
	}
	if !res.Matched {
		t.Fatalf("expected match between %d and %d", a, b)
	}
}
