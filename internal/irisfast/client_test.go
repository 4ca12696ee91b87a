package irisfast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSendMessagePostsReply(t *testing.T) {
	var got ReplyRequest
	var userHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/reply" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		userHeader = r.Header.Get("X-User-Id")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithHeaderProvider(func() map[string]string {
		return map[string]string{"X-User-Id": "bot", "X-Empty": " "}
	}))
	if err := c.SendMessage(context.Background(), "room1", "안녕"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got.Type != "text" || got.Room != "room1" || got.Data != "안녕" || userHeader != "bot" {
		t.Fatalf("request = %+v header=%q", got, userHeader)
	}
}

func TestGetConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bot_name":"flip","bot_http_port":3000,"web_server_endpoint":"http://x","db_polling_rate":100,"message_send_rate":50}`))
	}))
	defer srv.Close()

	cfg, err := NewClient(srv.URL).GetConfig(context.Background())
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if cfg.Port != 3000 || cfg.PollingSpeed != 100 || cfg.MessageRate != 50 || cfg.WebserverEndpoint != "http://x" {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestDecryptRetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"decrypted":"plain"}`))
	}))
	defer srv.Close()

	out, err := NewClient(srv.URL, WithRetry(3)).Decrypt(context.Background(), "cipher")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if out != "plain" || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("out=%q calls=%d", out, calls)
	}
}

func TestReplyDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).SendImage(context.Background(), "r", "aGk="); err == nil {
		t.Fatalf("expected error on 502")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestBackoffDuration(t *testing.T) {
	if backoffDuration(0) != 100*time.Millisecond || backoffDuration(3) != 400*time.Millisecond {
		t.Fatalf("unexpected backoff")
	}
	if backoffDuration(10) != backoffDuration(6) {
		t.Fatalf("backoff not capped")
	}
}

func TestAPIErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such room"))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).SendMessage(context.Background(), "r", "hi")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Path != "/reply" || apiErr.Body != "no such room" || apiErr.Temporary() {
		t.Fatalf("api error = %+v", apiErr)
	}
}
