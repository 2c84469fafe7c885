package sms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	coresms "github.com/resqlink/resqlink/core/sms"
)

func TestHTTPGateway_Send(t *testing.T) {
	var got sendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g, err := NewHTTPGateway(Config{URL: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	if err := g.Send(context.Background(), "+911234567890", "help"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.To != "+911234567890" || got.Text != "help" || got.Multipart {
		t.Fatalf("unexpected request: %+v", got)
	}
	if auth != "Bearer k" {
		t.Fatalf("auth header = %q", auth)
	}
}

func TestHTTPGateway_SendMultipart(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	g, _ := NewHTTPGateway(Config{URL: srv.URL})
	parts := []string{"part one", "part two"}
	if err := g.SendMultipart(context.Background(), "+91", parts); err != nil {
		t.Fatalf("send multipart: %v", err)
	}
	if !got.Multipart || len(got.Parts) != 2 {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestHTTPGateway_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g, _ := NewHTTPGateway(Config{URL: srv.URL})
	if err := g.Send(context.Background(), "+91", "help"); err == nil {
		t.Fatal("502 must surface as an error")
	}
}

func TestHTTPGateway_EmptyRecipient(t *testing.T) {
	g, _ := NewHTTPGateway(Config{URL: "http://localhost:0"})
	if err := g.Send(context.Background(), "", "help"); !errors.Is(err, coresms.ErrNoRecipient) {
		t.Fatalf("want ErrNoRecipient, got %v", err)
	}
}

func TestNewHTTPGateway_RequiresURL(t *testing.T) {
	if _, err := NewHTTPGateway(Config{}); err == nil {
		t.Fatal("missing url must fail")
	}
}
