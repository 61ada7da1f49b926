package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitcrush/internal/domain"
	"fitcrush/internal/models"

	"gorm.io/gorm"
)

// LedgerRepository is the only writer of users.crush_balance and the
// subscription columns. Every mutation appends a CrushTransaction with the
// post-mutation balance in the same database transaction.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// LedgerState is the balance and subscription snapshot of one user.
type LedgerState struct {
	UserID                uint       `json:"user_id"`
	CrushBalance          int        `json:"crush_balance"`
	SubscriptionActive    bool       `json:"subscription_active"`
	SubscriptionPlan      string     `json:"subscription_plan,omitempty"`
	SubscriptionPeriodEnd *time.Time `json:"subscription_period_end,omitempty"`
}

// Unlimited reports whether the subscription window covers now.
func (s LedgerState) Unlimited(now time.Time) bool {
	return domain.SubscriptionActive(s.SubscriptionActive, s.SubscriptionPeriodEnd, now)
}

// CanSend is true for active subscribers or when at least one crush is left.
func (s LedgerState) CanSend(now time.Time) bool {
	return s.Unlimited(now) || s.CrushBalance > 0
}

// DebitResult is the outcome of a successful Debit.
type DebitResult struct {
	Unlimited    bool
	BalanceAfter int
}

func (r *LedgerRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

func (r *LedgerRepository) State(ctx context.Context, tx *gorm.DB, userID uint) (*LedgerState, error) {
	var s LedgerState
	err := r.conn(tx).WithContext(ctx).
		Model(&models.User{}).
		Select("id AS user_id, crush_balance, subscription_active, subscription_plan, subscription_period_end").
		Where("id = ?", userID).
		Take(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Debit spends one crush. Subscribers are not charged. For everyone else the
// decrement is a single conditional UPDATE, so two concurrent sends from an
// account holding one crush cannot both succeed.
func (r *LedgerRepository) Debit(ctx context.Context, tx *gorm.DB, userID uint, now time.Time) (DebitResult, error) {
	db := r.conn(tx)
	state, err := r.State(ctx, db, userID)
	if err != nil {
		return DebitResult{}, err
	}
	if state.Unlimited(now) {
		return DebitResult{Unlimited: true, BalanceAfter: state.CrushBalance}, nil
	}

	result := db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND crush_balance > 0", userID).
		UpdateColumn("crush_balance", gorm.Expr("crush_balance - 1"))
	if result.Error != nil {
		return DebitResult{}, result.Error
	}
	if result.RowsAffected == 0 {
		return DebitResult{}, domain.ErrInsufficientBalance
	}

	after, err := r.balance(ctx, db, userID)
	if err != nil {
		return DebitResult{}, err
	}
	return DebitResult{BalanceAfter: after}, nil
}

// Credit adds amount crushes and records kind. It opens its own transaction
// when tx is nil.
func (r *LedgerRepository) Credit(ctx context.Context, tx *gorm.DB, userID uint, amount int, kind, description, reference string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	if tx == nil {
		var after int
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			after, err = r.Credit(ctx, tx, userID, amount, kind, description, reference)
			return err
		})
		return after, err
	}

	result := tx.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("crush_balance", gorm.Expr("crush_balance + ?", amount))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, domain.ErrUserNotFound
	}
	after, err := r.balance(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	err = r.Append(ctx, tx, &models.CrushTransaction{
		UserID:       userID,
		Kind:         kind,
		Delta:        amount,
		BalanceAfter: after,
		Description:  description,
		Reference:    reference,
	})
	return after, err
}

// ActivateSubscription opens or extends the unlimited window. kind is
// domain.TxSubscriptionStarted or domain.TxSubscriptionRenewed.
func (r *LedgerRepository) ActivateSubscription(ctx context.Context, tx *gorm.DB, userID uint, plan string, periodEnd time.Time, kind, reference string) error {
	db := r.conn(tx)
	result := db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"subscription_active":     true,
			"subscription_plan":       plan,
			"subscription_period_end": periodEnd,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	after, err := r.balance(ctx, db, userID)
	if err != nil {
		return err
	}
	return r.Append(ctx, db, &models.CrushTransaction{
		UserID:       userID,
		Kind:         kind,
		BalanceAfter: after,
		Description:  fmt.Sprintf("%s until %s", plan, periodEnd.UTC().Format(time.RFC3339)),
		Reference:    reference,
	})
}

// CancelSubscription clears the unlimited window. The crush balance held before
// the subscription is untouched.
func (r *LedgerRepository) CancelSubscription(ctx context.Context, tx *gorm.DB, userID uint, reference string) error {
	db := r.conn(tx)
	result := db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND subscription_active = ?", userID, true).
		Updates(map[string]interface{}{
			"subscription_active":     false,
			"subscription_period_end": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNoSubscription
	}
	after, err := r.balance(ctx, db, userID)
	if err != nil {
		return err
	}
	return r.Append(ctx, db, &models.CrushTransaction{
		UserID:       userID,
		Kind:         domain.TxSubscriptionCancelled,
		BalanceAfter: after,
		Description:  "subscription cancelled",
		Reference:    reference,
	})
}

// HasReference reports whether a history row with reference already exists for
// the user. Provider events carry their own id as reference so replays are
// detected.
func (r *LedgerRepository) HasReference(ctx context.Context, tx *gorm.DB, userID uint, reference string) (bool, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).
		Model(&models.CrushTransaction{}).
		Where("user_id = ? AND reference = ?", userID, reference).
		Count(&count).Error
	return count > 0, err
}

// Append writes a history row. Rows are never updated or deleted.
func (r *LedgerRepository) Append(ctx context.Context, tx *gorm.DB, t *models.CrushTransaction) error {
	return r.conn(tx).WithContext(ctx).Create(t).Error
}

func (r *LedgerRepository) History(ctx context.Context, userID uint, limit, offset int) ([]models.CrushTransaction, error) {
	var list []models.CrushTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

func (r *LedgerRepository) balance(ctx context.Context, db *gorm.DB, userID uint) (int, error) {
	var bal int
	err := db.WithContext(ctx).
		Model(&models.User{}).
		Select("crush_balance").
		Where("id = ?", userID).
		Scan(&bal).Error
	return bal, err
}
