package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWebhookPublish_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("content-type = %s, want application/json", ct)
		}

		var got Message
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Subject != "User Login - BookBazar" || got.Body != "User alice logged in" {
			t.Fatalf("unexpected message: %+v", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	p := NewWebhookPublisher(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := p.Publish(ctx, Message{Subject: "User Login - BookBazar", Body: "User alice logged in"})
	if err != nil {
		t.Fatalf("Publish error: %v", err)
	}
}

func TestWebhookPublish_TooManyRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	p := NewWebhookPublisher(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := p.Publish(ctx, Message{Subject: "s", Body: "b"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if !strings.Contains(err.Error(), "retry after 5s") {
		t.Fatalf("err = %v, want retry hint", err)
	}
}

func TestWebhookPublish_UnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	p := NewWebhookPublisher(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := p.Publish(ctx, Message{Subject: "s", Body: "b"})
	if err == nil {
		t.Fatalf("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "unexpected status: 500") {
		t.Fatalf("err = %v, want unexpected status", err)
	}
}

func TestWebhookPublish_ContextCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	p := NewWebhookPublisher(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := p.Publish(ctx, Message{Subject: "s", Body: "b"}); err == nil {
		t.Fatalf("expected error after context deadline")
	}
}

func TestNewWebhookPublisher_AddsScheme(t *testing.T) {
	p := NewWebhookPublisher("hooks.example.com/bookbazar")
	if p.url != "http://hooks.example.com/bookbazar" {
		t.Fatalf("url = %s, want http:// prefix", p.url)
	}

	p = NewWebhookPublisher("https://hooks.example.com")
	if p.url != "https://hooks.example.com" {
		t.Fatalf("url = %s, want unchanged", p.url)
	}
}
