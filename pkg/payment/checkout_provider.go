package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// CheckoutProvider talks to a hosted-checkout billing API with a bearer key.
// The provider posts signed callbacks to /api/v1/webhooks/payment.
type CheckoutProvider struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

func NewCheckoutProvider(baseURL, apiKey string) *CheckoutProvider {
	return &CheckoutProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *CheckoutProvider) Name() string { return "checkout" }

type checkoutSessionReq struct {
	ClientReference string `json:"client_reference_id"`
	CustomerEmail   string `json:"customer_email,omitempty"`
	Mode            string `json:"mode"` // payment or subscription
	AmountCents     int64  `json:"amount"`
	Currency        string `json:"currency"`
	IntervalDays    int    `json:"interval_days,omitempty"`
	Description     string `json:"description"`
	SuccessURL      string `json:"success_url,omitempty"`
	CancelURL       string `json:"cancel_url,omitempty"`
	ExpiresAt       int64  `json:"expires_at,omitempty"`
	Metadata        struct {
		UserID    uint   `json:"user_id"`
		PackageID string `json:"package_id"`
	} `json:"metadata"`
}

type checkoutSessionResp struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Status    string `json:"status"`
	ExpiresAt int64  `json:"expires_at"`
}

func (p *CheckoutProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	payload := checkoutSessionReq{
		ClientReference: req.Reference,
		CustomerEmail:   req.Email,
		Mode:            "payment",
		AmountCents:     req.AmountCents,
		Currency:        req.Currency,
		Description:     req.Description,
		SuccessURL:      req.SuccessURL,
		CancelURL:       req.CancelURL,
	}
	if req.Subscription {
		payload.Mode = "subscription"
		payload.IntervalDays = req.PeriodDays
	}
	if req.ExpiresIn > 0 {
		payload.ExpiresAt = time.Now().Add(req.ExpiresIn).Unix()
	}
	payload.Metadata.UserID = req.UserID
	payload.Metadata.PackageID = req.PackageID

	var out checkoutSessionResp
	if err := p.post(ctx, "/v1/checkout/sessions", payload, &out); err != nil {
		return nil, fmt.Errorf("checkout session: %w", err)
	}
	log.Printf("[Checkout] session created ref=%s session=%s", req.Reference, out.ID)
	return &CheckoutResponse{
		ProviderRef: out.ID,
		Status:      "PENDING",
		CheckoutURL: out.URL,
		ExpiresAt:   time.Unix(out.ExpiresAt, 0),
	}, nil
}

func (p *CheckoutProvider) CancelSubscription(ctx context.Context, userID uint, plan string) error {
	payload := map[string]interface{}{
		"customer_reference":   fmt.Sprintf("%d", userID),
		"plan":                 plan,
		"cancel_at_period_end": true,
	}
	if err := p.post(ctx, "/v1/subscriptions/cancel", payload, nil); err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	return nil
}

func (p *CheckoutProvider) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}
