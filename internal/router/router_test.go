package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fitcrush/config"
	"fitcrush/internal/database"
	"fitcrush/pkg/payment"

	"github.com/gin-gonic/gin"
)

func newTestApp(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := &config.Config{
		Server:   config.ServerConfig{Env: "test", RateLimit: 1000},
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: fmt.Sprintf("file:router_%s?mode=memory&cache=shared", name)},
		JWT: config.JWTConfig{
			AccessSecret:  "access",
			RefreshSecret: "refresh",
			AccessExpiry:  time.Hour,
			RefreshExpiry: 24 * time.Hour,
			Issuer:        "fitcrush-test",
		},
		Payment: config.PaymentConfig{WebhookSecret: "whsec_test"},
		Ledger:  config.LedgerConfig{WelcomeCrushes: 5, ReferralCrushes: 2},
	}
	db, err := database.NewDB(&cfg.Database)
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
	app, err := Setup(cfg, db, Deps{})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	return app.Engine
}

func do(t *testing.T, r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

type account struct {
	id    uint
	token string
}

func register(t *testing.T, r http.Handler, username string) account {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":         username + "@example.com",
		"username":      username,
		"password":      "hunter22",
		"date_of_birth": time.Now().AddDate(-30, 0, 0).Format("2006-01-02"),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", username, w.Code, w.Body.String())
	}
	body := decode(t, w)
	user := body["user"].(map[string]interface{})
	return account{id: uint(user["id"].(float64)), token: body["access_token"].(string)}
}

func TestHealthAndPackages(t *testing.T) {
	r := newTestApp(t)

	if w := do(t, r, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz: %d", w.Code)
	}
	w := do(t, r, http.MethodGet, "/api/v1/billing/packages", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("packages: %d", w.Code)
	}
	if pkgs := decode(t, w)["packages"].([]interface{}); len(pkgs) == 0 {
		t.Fatal("expected a package catalogue")
	}
}

func TestRegisterRejectsMinor(t *testing.T) {
	r := newTestApp(t)
	w := do(t, r, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":         "kid@example.com",
		"username":      "kid",
		"password":      "hunter22",
		"date_of_birth": time.Now().AddDate(-16, 0, 0).Format("2006-01-02"),
	})
	if w.Code != http.StatusForbidden || decode(t, w)["code"] != "age_required" {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestCrushFlowOverHTTP(t *testing.T) {
	r := newTestApp(t)
	alice := register(t, r, "alice")
	bob := register(t, r, "bob")

	if w := do(t, r, http.MethodPost, fmt.Sprintf("/api/v1/crushes/%d", bob.id), "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated send: %d", w.Code)
	}

	w := do(t, r, http.MethodPost, fmt.Sprintf("/api/v1/crushes/%d", bob.id), alice.token, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("send: %d %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["matched"] != false || body["remaining_balance"] != float64(4) {
		t.Fatalf("send body = %v", body)
	}

	w = do(t, r, http.MethodPost, fmt.Sprintf("/api/v1/crushes/%d", bob.id), alice.token, nil)
	if w.Code != http.StatusConflict || decode(t, w)["code"] != "already_sent" {
		t.Fatalf("duplicate: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/messages", bob.id), alice.token, map[string]string{"content": "hi"})
	if w.Code != http.StatusForbidden || decode(t, w)["code"] != "not_matched" {
		t.Fatalf("message before match: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, fmt.Sprintf("/api/v1/crushes/%d", alice.id), bob.token, nil)
	if w.Code != http.StatusCreated || decode(t, w)["matched"] != true {
		t.Fatalf("reciprocal send: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, fmt.Sprintf("/api/v1/conversations/%d/messages", bob.id), alice.token, map[string]string{"content": "leg day?"})
	if w.Code != http.StatusCreated {
		t.Fatalf("message after match: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/v1/matches", bob.token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("matches: %d", w.Code)
	}
	if matches := decode(t, w)["matches"].([]interface{}); len(matches) != 1 {
		t.Fatalf("matches = %v", matches)
	}

	w = do(t, r, http.MethodGet, "/api/v1/me/ledger", alice.token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ledger: %d", w.Code)
	}
	if ledger := decode(t, w); ledger["crush_balance"] != float64(4) || ledger["tier"] != "free" || ledger["can_send"] != true {
		t.Fatalf("ledger = %v", ledger)
	}
}

func TestPaymentWebhookOverHTTP(t *testing.T) {
	r := newTestApp(t)
	alice := register(t, r, "alice")

	w := do(t, r, http.MethodPost, "/api/v1/billing/purchase", alice.token, map[string]string{"package_id": "crushes_5"})
	if w.Code != http.StatusCreated {
		t.Fatalf("purchase: %d %s", w.Code, w.Body.String())
	}
	ref := decode(t, w)["reference"].(string)

	event, _ := json.Marshal(map[string]string{"id": "evt_1", "type": "payment.completed", "reference": ref})
	post := func(sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewReader(event))
		if sig != "" {
			req.Header.Set(payment.SignatureHeader, sig)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	if w := post(""); w.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned webhook: %d", w.Code)
	}
	if w := post(payment.Sign("wrong", event)); w.Code != http.StatusUnauthorized || decode(t, w)["code"] != "invalid_signature" {
		t.Fatalf("bad signature: %d %s", w.Code, w.Body.String())
	}
	if w := post(payment.Sign("whsec_test", event)); w.Code != http.StatusOK {
		t.Fatalf("signed webhook: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/v1/me/ledger", alice.token, nil)
	if ledger := decode(t, w); ledger["crush_balance"] != float64(10) {
		t.Fatalf("ledger after purchase = %v", ledger)
	}
}
