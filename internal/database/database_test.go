package database

import (
	"errors"
	"fmt"
	"testing"

	"fitcrush/config"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

func TestNewDBSQLiteAndMigrate(t *testing.T) {
	db, err := NewDB(&config.DatabaseConfig{Driver: "sqlite", DSN: "file:dbtest?mode=memory&cache=shared"})
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, table := range []string{"users", "interest_outbound", "interest_inbound", "crush_transactions", "outbox_events", "messages"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("table %s missing after migrate", table)
		}
	}
}

func TestNewDBRejectsUnknownDriver(t *testing.T) {
	if _, err := NewDB(&config.DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	deadlock := fmt.Errorf("send crush: %w", &mysqldriver.MySQLError{Number: 1213, Message: "Deadlock found"})
	lockWait := &mysqldriver.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}
	dup := &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"}

	if !IsRetryable(deadlock) || !IsRetryable(lockWait) {
		t.Fatalf("deadlock and lock wait must be retryable")
	}
	if IsRetryable(dup) || IsRetryable(errors.New("boom")) {
		t.Fatalf("only lock conflicts are retryable")
	}
	if !IsDuplicate(dup) || !IsDuplicate(gorm.ErrDuplicatedKey) || IsDuplicate(deadlock) {
		t.Fatalf("duplicate classification wrong")
	}
}
