package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckoutProviderCreateCheckout(t *testing.T) {
	t.Parallel()

	var got checkoutSessionReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key_123" {
			t.Errorf("missing bearer key")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://pay.example/cs_1","status":"open","expires_at":1900000000}`))
	}))
	defer srv.Close()

	p := NewCheckoutProvider(srv.URL, "key_123")
	resp, err := p.CreateCheckout(context.Background(), CheckoutRequest{
		UserID:       7,
		Reference:    "ref-1",
		PackageID:    "premium_monthly",
		Subscription: true,
		PeriodDays:   30,
		AmountCents:  1499,
		Currency:     "USD",
	})
	if err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}
	if resp.ProviderRef != "cs_1" || resp.CheckoutURL != "https://pay.example/cs_1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got.Mode != "subscription" || got.IntervalDays != 30 || got.ClientReference != "ref-1" || got.Metadata.UserID != 7 {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestCheckoutProviderErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewCheckoutProvider(srv.URL, "k")
	if err := p.CancelSubscription(context.Background(), 1, "premium_monthly"); err == nil {
		t.Fatalf("expected error on 502")
	}
}
