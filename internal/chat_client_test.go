package internal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPChatClient_Reply(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		want      string
		wantErr   bool
		wantIsErr error
	}{
		{name: "reply", status: 200, body: `{"reply":"Take a breath."}`, want: "Take a breath."},
		{name: "empty reply", status: 200, body: `{"reply":""}`, want: NoResponseText},
		{name: "missing reply", status: 200, body: `{"answer":"x"}`, wantErr: true, wantIsErr: ErrMissingReply},
		{name: "malformed body", status: 200, body: `<html>`, wantErr: true},
		{name: "server error", status: 500, body: `{"reply":"ignored"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotText string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/chat" {
					t.Errorf("request = %s %s, want POST /chat", r.Method, r.URL.Path)
				}
				if ct := r.Header.Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %q", ct)
				}
				var req map[string]string
				_ = json.NewDecoder(r.Body).Decode(&req)
				gotText = req["text"]
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewHTTPChatClient(srv.URL + "/")
			got, err := c.Reply(context.Background(), "hello")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Reply() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantIsErr != nil && !errors.Is(err, tt.wantIsErr) {
				t.Errorf("Reply() error = %v, want %v", err, tt.wantIsErr)
			}
			if got != tt.want {
				t.Errorf("Reply() = %q, want %q", got, tt.want)
			}
			if gotText != "hello" {
				t.Errorf("server saw text %q, want %q", gotText, "hello")
			}
		})
	}
}

func TestHTTPChatClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPChatClient(srv.URL).Reply(context.Background(), "x")
	var endpointErr *EndpointError
	if !errors.As(err, &endpointErr) {
		t.Fatalf("Reply() error = %v, want *EndpointError", err)
	}
	if endpointErr.Status != http.StatusBadGateway {
		t.Errorf("Status = %d, want %d", endpointErr.Status, http.StatusBadGateway)
	}
}

func TestHTTPChatClient_Cancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewHTTPChatClient(srv.URL).Reply(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Reply() error = %v, want context.Canceled", err)
	}
}

func TestHTTPChatClient_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			_, _ = w.Write([]byte(`{"status":"ok"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if err := NewHTTPChatClient(srv.URL).Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func TestNewHTTPChatClient_DefaultEndpoint(t *testing.T) {
	if got := NewHTTPChatClient("").Endpoint; got != DefaultEndpoint {
		t.Errorf("Endpoint = %q, want %q", got, DefaultEndpoint)
	}
}
