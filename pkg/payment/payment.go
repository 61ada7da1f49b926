package payment

import (
	"context"
	"time"
)

// CheckoutRequest asks the provider for a hosted checkout page.
type CheckoutRequest struct {
	UserID       uint
	Email        string
	Reference    string // our payment reference, echoed back in the webhook
	PackageID    string
	Subscription bool
	PeriodDays   int
	AmountCents  int64
	Currency     string
	Description  string
	SuccessURL   string
	CancelURL    string
	ExpiresIn    time.Duration
}

type CheckoutResponse struct {
	ProviderRef string
	Status      string
	CheckoutURL string
	ExpiresAt   time.Time
}

// Provider is the third-party billing processor. It never changes local state;
// confirmations arrive through the signed webhook.
type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error)
	// CancelSubscription asks the provider to stop renewing at period end.
	CancelSubscription(ctx context.Context, userID uint, plan string) error
}
