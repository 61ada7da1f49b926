package service

import (
	"context"
	"time"

	"fitcrush/internal/domain"
	"fitcrush/internal/models"
	"fitcrush/internal/repository"
)

type LedgerService struct {
	ledger *repository.LedgerRepository
	now    func() time.Time
}

func NewLedgerService(ledger *repository.LedgerRepository) *LedgerService {
	return &LedgerService{ledger: ledger, now: time.Now}
}

// LedgerSummary is the balance page: what the user holds, what their tier
// unlocks and the recent history.
type LedgerSummary struct {
	CrushBalance          int                       `json:"crush_balance"`
	Unlimited             bool                      `json:"unlimited"`
	CanSend               bool                      `json:"can_send"`
	Tier                  domain.Tier               `json:"tier"`
	Capabilities          domain.Capabilities       `json:"capabilities"`
	SubscriptionPlan      string                    `json:"subscription_plan,omitempty"`
	SubscriptionPeriodEnd *time.Time                `json:"subscription_period_end,omitempty"`
	History               []models.CrushTransaction `json:"history"`
}

func (s *LedgerService) Summary(ctx context.Context, userID uint, limit, offset int) (*LedgerSummary, error) {
	state, err := s.ledger.State(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	history, err := s.ledger.History(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	now := s.now()
	tier := domain.TierFor(state.SubscriptionActive, state.SubscriptionPeriodEnd, now)
	sum := &LedgerSummary{
		CrushBalance: state.CrushBalance,
		Unlimited:    state.Unlimited(now),
		CanSend:      state.CanSend(now),
		Tier:         tier,
		Capabilities: domain.CapabilitiesOf(tier),
		History:      history,
	}
	if sum.Unlimited {
		sum.SubscriptionPlan = state.SubscriptionPlan
		sum.SubscriptionPeriodEnd = state.SubscriptionPeriodEnd
	}
	return sum, nil
}
