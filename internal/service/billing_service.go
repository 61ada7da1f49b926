package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fitcrush/config"
	"fitcrush/internal/domain"
	"fitcrush/internal/metrics"
	"fitcrush/internal/models"
	"fitcrush/internal/repository"
	"fitcrush/pkg/payment"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Webhook event types sent by the billing provider.
const (
	WebhookPaymentCompleted      = "payment.completed"
	WebhookPaymentFailed         = "payment.failed"
	WebhookSubscriptionRenewed   = "subscription.renewed"
	WebhookSubscriptionCancelled = "subscription.cancelled"
	WebhookCreditsGranted        = "credits.granted"
	WebhookCreditsRefunded       = "credits.refunded"
)

// WebhookEvent is the provider callback body.
type WebhookEvent struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Reference   string     `json:"reference"`    // our payment reference
	ProviderRef string     `json:"provider_ref"` // provider session or subscription id
	UserID      uint       `json:"user_id"`
	PackageID   string     `json:"package_id"`
	Crushes     int        `json:"crushes"`
	PeriodEnd   *time.Time `json:"period_end"`
	Reason      string     `json:"reason"`
}

// WebhookResult says what a callback did. Duplicate is true for replays that
// changed nothing.
type WebhookResult struct {
	Event     string `json:"event"`
	Applied   bool   `json:"applied"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
}

// BillingService starts checkouts and applies provider callbacks. Only
// HandleWebhook credits crushes or changes subscriptions.
type BillingService struct {
	db       *gorm.DB
	cfg      *config.PaymentConfig
	provider payment.Provider
	payments *repository.PaymentRepository
	ledger   *repository.LedgerRepository
	users    *repository.UserRepository
	outbox   *repository.OutboxRepository
	audit    *repository.AuditLogRepository
	ids      *snowflake.Node
	now      func() time.Time
}

func NewBillingService(
	db *gorm.DB,
	cfg *config.PaymentConfig,
	provider payment.Provider,
	payments *repository.PaymentRepository,
	ledger *repository.LedgerRepository,
	users *repository.UserRepository,
	outbox *repository.OutboxRepository,
	audit *repository.AuditLogRepository,
	node *snowflake.Node,
) *BillingService {
	return &BillingService{
		db:       db,
		cfg:      cfg,
		provider: provider,
		payments: payments,
		ledger:   ledger,
		users:    users,
		outbox:   outbox,
		audit:    audit,
		ids:      node,
		now:      time.Now,
	}
}

// Purchase records a PENDING payment and returns the provider checkout. The
// balance is not touched until the provider confirms.
func (s *BillingService) Purchase(ctx context.Context, userID uint, packageID string) (*models.Payment, error) {
	pkg, err := domain.LookupPackage(packageID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	meta, _ := json.Marshal(map[string]interface{}{
		"package_name": pkg.Name,
		"price":        pkg.Price(),
		"crushes":      pkg.Crushes,
		"period_days":  pkg.PeriodDays,
	})
	p := &models.Payment{
		UserID:      userID,
		Reference:   s.ids.Generate().String(),
		PackageID:   pkg.ID,
		Kind:        pkg.Kind,
		AmountCents: pkg.AmountCents,
		Currency:    pkg.Currency,
		Provider:    s.provider.Name(),
		Status:      domain.PaymentStatusPending,
		Metadata:    datatypes.JSON(meta),
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	resp, err := s.provider.CreateCheckout(ctx, payment.CheckoutRequest{
		UserID:       userID,
		Email:        user.Email,
		Reference:    p.Reference,
		PackageID:    pkg.ID,
		Subscription: pkg.IsSubscription(),
		PeriodDays:   pkg.PeriodDays,
		AmountCents:  pkg.AmountCents,
		Currency:     pkg.Currency,
		Description:  pkg.Name,
		SuccessURL:   s.cfg.SuccessURL,
		CancelURL:    s.cfg.CancelURL,
		ExpiresIn:    s.cfg.PaymentExpiry,
	})
	if err != nil {
		if _, ferr := s.payments.MarkFailed(ctx, p.Reference); ferr != nil {
			slog.Error("mark payment failed", "reference", p.Reference, "error", ferr)
		}
		return nil, fmt.Errorf("create checkout: %w", err)
	}
	if err := s.payments.SetCheckout(ctx, p.ID, resp.ProviderRef, resp.CheckoutURL); err != nil {
		return nil, err
	}
	p.ProviderRef = resp.ProviderRef
	p.CheckoutURL = resp.CheckoutURL
	slog.Info("checkout started", "user_id", userID, "package_id", pkg.ID, "reference", p.Reference)
	return p, nil
}

// CancelSubscription asks the provider to stop renewing. Local state changes
// when the provider's subscription.cancelled callback arrives.
func (s *BillingService) CancelSubscription(ctx context.Context, userID uint) error {
	state, err := s.ledger.State(ctx, nil, userID)
	if err != nil {
		return err
	}
	if !state.Unlimited(s.now()) {
		return domain.ErrNoSubscription
	}
	if err := s.provider.CancelSubscription(ctx, userID, state.SubscriptionPlan); err != nil {
		return fmt.Errorf("provider cancel: %w", err)
	}
	return nil
}

func (s *BillingService) ListPayments(ctx context.Context, userID uint, limit, offset int) ([]models.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.payments.ListByUser(ctx, userID, limit, offset)
}

// HandleWebhook verifies and applies a provider callback. A bad signature is
// rejected before the body is parsed.
func (s *BillingService) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if !payment.VerifySignature(s.cfg.WebhookSecret, body, signature) {
		metrics.WebhooksReceived.WithLabelValues("unknown", "invalid_signature").Inc()
		slog.Warn("payment webhook rejected: invalid signature")
		return nil, domain.ErrInvalidSignature
	}
	var evt WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	var (
		res *WebhookResult
		err error
	)
	switch evt.Type {
	case WebhookPaymentCompleted:
		res, err = s.completePayment(ctx, evt)
	case WebhookPaymentFailed:
		res, err = s.failPayment(ctx, evt)
	case WebhookSubscriptionRenewed:
		res, err = s.renewSubscription(ctx, evt)
	case WebhookSubscriptionCancelled:
		res, err = s.cancelSubscription(ctx, evt)
	case WebhookCreditsGranted:
		res, err = s.grantCredits(ctx, evt, domain.TxBonus, "bonus crushes")
	case WebhookCreditsRefunded:
		res, err = s.grantCredits(ctx, evt, domain.TxRefund, "refunded crushes")
	default:
		slog.Info("payment webhook ignored", "type", evt.Type, "id", evt.ID)
		res = &WebhookResult{Event: evt.Type, Ignored: true}
	}
	if err != nil {
		metrics.WebhooksReceived.WithLabelValues(evt.Type, "error").Inc()
		return nil, err
	}
	outcome := "applied"
	if res.Duplicate {
		outcome = "duplicate"
	} else if res.Ignored {
		outcome = "ignored"
	}
	metrics.WebhooksReceived.WithLabelValues(evt.Type, outcome).Inc()
	return res, nil
}

func (s *BillingService) completePayment(ctx context.Context, evt WebhookEvent) (*WebhookResult, error) {
	res := &WebhookResult{Event: evt.Type}
	p, err := s.payments.GetByReference(ctx, nil, evt.Reference)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			slog.Warn("payment webhook for unknown reference", "reference", evt.Reference)
			res.Ignored = true
			return res, nil
		}
		return nil, err
	}
	pkg, err := domain.LookupPackage(p.PackageID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		changed, err := s.payments.MarkCompleted(ctx, tx, p.Reference, evt.ProviderRef, now)
		if err != nil {
			return err
		}
		if !changed {
			res.Duplicate = true
			return nil
		}
		if pkg.IsSubscription() {
			state, err := s.ledger.State(ctx, tx, p.UserID)
			if err != nil {
				return err
			}
			kind := domain.TxSubscriptionStarted
			start := now
			if state.Unlimited(now) {
				kind = domain.TxSubscriptionRenewed
				start = *state.SubscriptionPeriodEnd
			}
			end := start.AddDate(0, 0, pkg.PeriodDays)
			if evt.PeriodEnd != nil && evt.PeriodEnd.After(now) {
				end = *evt.PeriodEnd
			}
			if err := s.ledger.ActivateSubscription(ctx, tx, p.UserID, pkg.ID, end, kind, p.Reference); err != nil {
				return err
			}
		} else {
			if _, err := s.ledger.Credit(ctx, tx, p.UserID, pkg.Crushes, domain.TxPurchased, pkg.Name, p.Reference); err != nil {
				return err
			}
		}
		outboxEvt, err := newOutboxEvent(EventPayload{
			Type:      domain.EventPaymentDone,
			UserID:    p.UserID,
			Reference: p.Reference,
			PackageID: pkg.ID,
			Crushes:   pkg.Crushes,
		}, now)
		if err != nil {
			return err
		}
		return s.outbox.Create(ctx, tx, outboxEvt)
	})
	if err != nil {
		return nil, fmt.Errorf("complete payment %s: %w", p.Reference, err)
	}
	if !res.Duplicate {
		res.Applied = true
		s.auditLog(p.UserID, "payment_completed", p.Reference)
		slog.Info("payment completed", "user_id", p.UserID, "package_id", pkg.ID, "reference", p.Reference)
	}
	return res, nil
}

func (s *BillingService) failPayment(ctx context.Context, evt WebhookEvent) (*WebhookResult, error) {
	changed, err := s.payments.MarkFailed(ctx, evt.Reference)
	if err != nil {
		return nil, err
	}
	return &WebhookResult{Event: evt.Type, Applied: changed, Duplicate: !changed}, nil
}

func (s *BillingService) renewSubscription(ctx context.Context, evt WebhookEvent) (*WebhookResult, error) {
	if evt.UserID == 0 || evt.PeriodEnd == nil || evt.ID == "" {
		return nil, domain.ErrInvalidPayload
	}
	plan := evt.PackageID
	if _, err := domain.LookupPackage(plan); err != nil {
		return nil, err
	}
	res := &WebhookResult{Event: evt.Type}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen, err := s.ledger.HasReference(ctx, tx, evt.UserID, evt.ID)
		if err != nil || seen {
			res.Duplicate = seen
			return err
		}
		now := s.now()
		if err := s.ledger.ActivateSubscription(ctx, tx, evt.UserID, plan, *evt.PeriodEnd, domain.TxSubscriptionRenewed, evt.ID); err != nil {
			return err
		}
		outboxEvt, err := newOutboxEvent(EventPayload{Type: domain.EventSubscription, UserID: evt.UserID, PackageID: plan, Reference: evt.ID}, now)
		if err != nil {
			return err
		}
		return s.outbox.Create(ctx, tx, outboxEvt)
	})
	if err != nil {
		return nil, err
	}
	res.Applied = !res.Duplicate
	return res, nil
}

func (s *BillingService) cancelSubscription(ctx context.Context, evt WebhookEvent) (*WebhookResult, error) {
	if evt.UserID == 0 || evt.ID == "" {
		return nil, domain.ErrInvalidPayload
	}
	res := &WebhookResult{Event: evt.Type}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := s.ledger.CancelSubscription(ctx, tx, evt.UserID, evt.ID)
		if errors.Is(err, domain.ErrNoSubscription) {
			res.Duplicate = true
			return nil
		}
		if err != nil {
			return err
		}
		outboxEvt, err := newOutboxEvent(EventPayload{Type: domain.EventSubscription, UserID: evt.UserID, Reference: evt.ID}, s.now())
		if err != nil {
			return err
		}
		return s.outbox.Create(ctx, tx, outboxEvt)
	})
	if err != nil {
		return nil, err
	}
	res.Applied = !res.Duplicate
	if res.Applied {
		s.auditLog(evt.UserID, "subscription_cancelled", evt.ID)
	}
	return res, nil
}

func (s *BillingService) grantCredits(ctx context.Context, evt WebhookEvent, kind, description string) (*WebhookResult, error) {
	if evt.UserID == 0 || evt.ID == "" || evt.Crushes <= 0 {
		return nil, domain.ErrInvalidPayload
	}
	if evt.Reason != "" {
		description = evt.Reason
	}
	res := &WebhookResult{Event: evt.Type}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen, err := s.ledger.HasReference(ctx, tx, evt.UserID, evt.ID)
		if err != nil || seen {
			res.Duplicate = seen
			return err
		}
		_, err = s.ledger.Credit(ctx, tx, evt.UserID, evt.Crushes, kind, description, evt.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Applied = !res.Duplicate
	return res, nil
}

func (s *BillingService) auditLog(userID uint, action, ref string) {
	if s.audit == nil {
		return
	}
	uid := userID
	if err := s.audit.Create(&models.AuditLog{UserID: &uid, Action: action, Resource: "payment", ResourceID: ref}); err != nil {
		slog.Error("audit log", "action", action, "error", err)
	}
}
