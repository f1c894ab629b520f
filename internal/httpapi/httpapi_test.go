package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ozonedb/internal/auth"
	"ozonedb/internal/db"
)

func newTestServer(t *testing.T, noAuth bool) (*Server, *auth.TokenService) {
	t.Helper()
	d, err := db.Open(context.Background(), db.Config{
		NumZones:  1,
		ZoneRoots: []string{t.TempDir()},
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(d.Close)

	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour)
	s := New(d, Config{Tokens: tokens, NoAuth: noAuth})
	return s, tokens
}

func TestInsertGetDeleteRoundTrip(t *testing.T) {
	s, tokens := newTestServer(t, false)
	h := s.Handler()

	token, _, err := tokens.Issue("alice", "admin")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	body, _ := json.Marshal(insertRequest{
		Key:   base64.StdEncoding.EncodeToString([]byte("k1")),
		Value: base64.StdEncoding.EncodeToString([]byte("v1")),
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/keys", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("insert status = %d body=%s", rec.Code, rec.Body.String())
	}

	encodedKey := base64.URLEncoding.EncodeToString([]byte("k1"))
	req = httptest.NewRequest(http.MethodGet, "/v1/keys/"+encodedKey, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d body=%s", rec.Code, rec.Body.String())
	}
	var got getResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	value, err := base64.StdEncoding.DecodeString(got.Value)
	if err != nil || string(value) != "v1" {
		t.Fatalf("value mismatch: %q err=%v", got.Value, err)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/keys/"+encodedKey, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/keys/"+encodedKey, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestMissingBearerTokenRejected(t *testing.T) {
	s, _ := newTestServer(t, false)
	h := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/zones", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestNoAuthModeSkipsVerification(t *testing.T) {
	s, _ := newTestServer(t, true)
	h := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/zones", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 in no-auth mode, got %d", rec.Code)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	s, _ := newTestServer(t, true)
	s.rl = newRateLimiter(0, 1) // one request allowed, then always limited
	h := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be rate limited, got %d", rec.Code)
	}
}
