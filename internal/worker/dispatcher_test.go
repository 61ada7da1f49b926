package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"fitcrush/config"
	"fitcrush/internal/database"
	"fitcrush/internal/models"
	"fitcrush/internal/repository"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.NewDB(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:worker_%s?mode=memory&cache=shared", name),
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

type fakeDeliverer struct {
	mu    sync.Mutex
	fail  error
	calls int
}

func (f *fakeDeliverer) Deliver(context.Context, *models.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.fail
}

type fakePublisher struct {
	keys []string
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, key string, _ []byte) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func enqueue(t *testing.T, db *gorm.DB, eventID string, at time.Time) *models.OutboxEvent {
	t.Helper()
	evt := &models.OutboxEvent{
		EventID:       eventID,
		Type:          "crush.received",
		UserID:        1,
		Payload:       datatypes.JSON(`{"type":"crush.received","user_id":1}`),
		Status:        models.OutboxPending,
		NextAttemptAt: at,
	}
	if err := db.Create(evt).Error; err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return evt
}

func reload(t *testing.T, db *gorm.DB, id uint) models.OutboxEvent {
	t.Helper()
	var evt models.OutboxEvent
	if err := db.First(&evt, id).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	return evt
}

var testWorkerConfig = config.WorkerConfig{
	PollInterval: 10 * time.Millisecond,
	BatchSize:    10,
	MaxRetries:   3,
	BaseBackoff:  time.Second,
	MaxBackoff:   10 * time.Second,
}

func TestDispatcherMarksSent(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()
	evt := enqueue(t, db, "01HZXEVENT0000000000000001", now.Add(-time.Second))
	enqueue(t, db, "01HZXEVENT0000000000000002", now.Add(time.Hour)) // not due

	deliverer := &fakeDeliverer{}
	publisher := &fakePublisher{}
	d := NewDispatcher(repository.NewOutboxRepository(db), deliverer, publisher, testWorkerConfig)
	d.now = func() time.Time { return now }

	if n := d.RunOnce(context.Background()); n != 1 {
		t.Fatalf("attempted %d, want 1", n)
	}
	got := reload(t, db, evt.ID)
	if got.Status != models.OutboxSent || got.SentAt == nil {
		t.Fatalf("event = %+v", got)
	}
	if len(publisher.keys) != 1 || publisher.keys[0] != evt.EventID {
		t.Fatalf("published keys = %v", publisher.keys)
	}
	if n := d.RunOnce(context.Background()); n != 0 {
		t.Fatalf("sent events must not be retried, attempted %d", n)
	}
}

func TestDispatcherRetriesThenFails(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()
	evt := enqueue(t, db, "01HZXEVENT0000000000000003", now)

	deliverer := &fakeDeliverer{fail: errors.New("mail provider unavailable")}
	d := NewDispatcher(repository.NewOutboxRepository(db), deliverer, nil, testWorkerConfig)
	clock := now
	d.now = func() time.Time { return clock }

	d.RunOnce(context.Background())
	got := reload(t, db, evt.ID)
	if got.Status != models.OutboxPending || got.RetryCount != 1 {
		t.Fatalf("after first failure: %+v", got)
	}
	if !got.NextAttemptAt.After(now) || got.LastError == "" {
		t.Fatalf("retry not scheduled: next=%v err=%q", got.NextAttemptAt, got.LastError)
	}

	// not due yet
	if n := d.RunOnce(context.Background()); n != 0 {
		t.Fatalf("attempted %d before backoff elapsed", n)
	}

	for i := 0; i < 2; i++ {
		clock = clock.Add(time.Minute)
		d.RunOnce(context.Background())
	}
	got = reload(t, db, evt.ID)
	if got.Status != models.OutboxFailed {
		t.Fatalf("status = %s, want FAILED", got.Status)
	}
	if deliverer.calls != testWorkerConfig.MaxRetries {
		t.Fatalf("deliveries = %d, want %d", deliverer.calls, testWorkerConfig.MaxRetries)
	}

	clock = clock.Add(time.Hour)
	if n := d.RunOnce(context.Background()); n != 0 {
		t.Fatalf("failed events must not be retried, attempted %d", n)
	}
}

func TestDispatcherPublishErrorRetries(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()
	evt := enqueue(t, db, "01HZXEVENT0000000000000004", now)
	d := NewDispatcher(repository.NewOutboxRepository(db), &fakeDeliverer{}, &fakePublisher{err: errors.New("broker down")}, testWorkerConfig)
	d.now = func() time.Time { return now }

	d.RunOnce(context.Background())
	got := reload(t, db, evt.ID)
	if got.Status != models.OutboxPending || got.RetryCount != 1 {
		t.Fatalf("event = %+v", got)
	}
}

func TestDispatcherStartStop(t *testing.T) {
	db := newTestDB(t)
	evt := enqueue(t, db, "01HZXEVENT0000000000000005", time.Now().Add(-time.Second))
	d := NewDispatcher(repository.NewOutboxRepository(db), &fakeDeliverer{}, nil, testWorkerConfig)

	done := make(chan struct{})
	go func() {
		d.Start(context.Background())
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if reload(t, db, evt.ID).Status == models.OutboxSent {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	d.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
	if st := reload(t, db, evt.ID).Status; st != models.OutboxSent {
		t.Fatalf("status = %s, want SENT", st)
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()
	base, max := 2*time.Second, 60*time.Second
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{-1, 2 * time.Second},
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{4, 32 * time.Second},
		{5, 60 * time.Second},
		{30, 60 * time.Second},
	}
	for _, tt := range tests {
		if got := Backoff(base, max, tt.retry); got != tt.want {
			t.Errorf("Backoff(%v, %v, %d) = %v, want %v", base, max, tt.retry, got, tt.want)
		}
	}
}
