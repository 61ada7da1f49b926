package payment

import (
	"context"
	"fmt"
	"time"
)

// StubProvider is a no-op provider for development. Payments it creates stay
// PENDING until a signed webhook is posted by hand.
type StubProvider struct{}

func (s *StubProvider) Name() string { return "stub" }

func (s *StubProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	ref := fmt.Sprintf("stub_%s", req.Reference)
	return &CheckoutResponse{
		ProviderRef: ref,
		Status:      "PENDING",
		CheckoutURL: "",
		ExpiresAt:   time.Now().Add(req.ExpiresIn),
	}, nil
}

func (s *StubProvider) CancelSubscription(ctx context.Context, userID uint, plan string) error {
	return nil
}
