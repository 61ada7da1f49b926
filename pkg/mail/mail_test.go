package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPSenderSend(t *testing.T) {
	t.Parallel()

	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing api key")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewHTTPSender(srv.URL, "key", "hello@fitcrush.app")
	if err := s.Send(context.Background(), MatchEmail("a@example.com", "Ana", "Ben")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["from"] != "hello@fitcrush.app" || got["to"] != "a@example.com" || got["subject"] == "" {
		t.Fatalf("unexpected body %v", got)
	}
}

func TestHTTPSenderErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewHTTPSender(srv.URL, "key", "x@y.z")
	if err := s.Send(context.Background(), CrushEmail("a@example.com", "Ana")); err == nil {
		t.Fatalf("expected error")
	}
}
