package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

func newTestResendSender(t *testing.T, serverURL string) *resendSender {
	t.Helper()
	sender := newResendSender("test-api-key", zerolog.Nop())
	baseURL, err := url.Parse(serverURL)
	if err != nil {
		t.Fatalf("parse mock url: %v", err)
	}
	sender.client.BaseURL = baseURL
	return sender
}

func TestResendSender_Success(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/emails" {
			t.Errorf("Expected POST /emails, got %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("Expected Bearer token in Authorization header, got %q", auth)
		}

		var req resend.SendEmailRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.From != "no-reply@bomanihosts.com" {
			t.Errorf("Expected From=no-reply@bomanihosts.com, got %q", req.From)
		}
		if len(req.To) != 1 || req.To[0] != "guest@example.com" {
			t.Errorf("Expected To=[guest@example.com], got %v", req.To)
		}
		if req.Text != "Plain body" || !strings.Contains(req.Html, "HTML body") {
			t.Errorf("unexpected bodies: text=%q html=%q", req.Text, req.Html)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "mock-email-id-123"})
	}))
	defer mockServer.Close()

	sender := newTestResendSender(t, mockServer.URL)
	err := sender.Send(context.Background(), "no-reply@bomanihosts.com", Message{
		To:      "guest@example.com",
		Subject: "Test Subject",
		Text:    "Plain body",
		HTML:    "<p>HTML body</p>",
	})
	if err != nil {
		t.Errorf("Expected successful send, got error: %v", err)
	}
}

func TestResendSender_RateLimitError(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-RateLimit-Limit", "100")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "60")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Rate limit exceeded"})
	}))
	defer mockServer.Close()

	sender := newTestResendSender(t, mockServer.URL)
	err := sender.Send(context.Background(), "no-reply@bomanihosts.com", Message{To: "guest@example.com", Subject: "s", Text: "t"})
	if err == nil {
		t.Fatal("Expected rate limit error, got nil")
	}
	if !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("Expected rate limit error message, got %q", err.Error())
	}
}

func TestResendSender_ServerError(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "internal"})
	}))
	defer mockServer.Close()

	sender := newTestResendSender(t, mockServer.URL)
	err := sender.Send(context.Background(), "no-reply@bomanihosts.com", Message{To: "guest@example.com", Subject: "s", Text: "t"})
	if err == nil || !strings.Contains(err.Error(), "resend API error") {
		t.Fatalf("Expected resend API error, got %v", err)
	}
}
