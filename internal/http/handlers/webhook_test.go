package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/krishkalaria12/echo-interview/internal/data/repos/testutil"
	apperrors "github.com/krishkalaria12/echo-interview/internal/pkg/errors"
	"github.com/krishkalaria12/echo-interview/internal/services"
)

type fakeVerifier struct {
	valid bool
}

func (f *fakeVerifier) VerifySignature([]byte, string) bool { return f.valid }

type fakeWebhookService struct {
	err      error
	events   []*services.WebhookEvent
	enriched []uuid.UUID
}

func (f *fakeWebhookService) HandleEvent(_ context.Context, ev *services.WebhookEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakeWebhookService) EmitEnrichment(_ context.Context, id uuid.UUID) error {
	f.enriched = append(f.enriched, id)
	return f.err
}

func newWebhookRig(t *testing.T, valid bool, svcErr error) (*gin.Engine, *fakeWebhookService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := &fakeWebhookService{err: svcErr}
	h := NewWebhookHandler(testutil.Logger(t), &fakeVerifier{valid: valid}, svc)
	r := gin.New()
	r.POST("/api/webhook", h.Receive)
	return r, svc
}

func postWebhook(r *gin.Engine, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var authedHeaders = map[string]string{
	"x-signature": "deadbeef",
	"x-api-key":   "key123",
}

func TestWebhookMissingAuthHeaders(t *testing.T) {
	r, svc := newWebhookRig(t, true, nil)

	for _, headers := range []map[string]string{
		{},
		{"x-signature": "deadbeef"},
		{"x-api-key": "key123"},
	} {
		w := postWebhook(r, []byte(`{"type":"call.session_started"}`), headers)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
		if body := w.Body.String(); !bytes.Contains([]byte(body), []byte("Missing signature or API key")) {
			t.Fatalf("body = %s", body)
		}
	}
	if len(svc.events) != 0 {
		t.Fatalf("events dispatched without auth")
	}
}

func TestWebhookInvalidSignature(t *testing.T) {
	r, svc := newWebhookRig(t, false, nil)

	w := postWebhook(r, []byte(`{"type":"call.session_started"}`), authedHeaders)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if body := w.Body.String(); !bytes.Contains([]byte(body), []byte("Invalid signature")) {
		t.Fatalf("body = %s", body)
	}
	if len(svc.events) != 0 {
		t.Fatalf("events dispatched with bad signature")
	}
}

func TestWebhookInvalidJSON(t *testing.T) {
	r, svc := newWebhookRig(t, true, nil)

	w := postWebhook(r, []byte(`{not json`), authedHeaders)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := w.Body.String(); !bytes.Contains([]byte(body), []byte("Invalid JSON")) {
		t.Fatalf("body = %s", body)
	}
	if len(svc.events) != 0 {
		t.Fatalf("events dispatched for malformed body")
	}
}

func TestWebhookDispatchesAndAcks(t *testing.T) {
	r, svc := newWebhookRig(t, true, nil)

	w := postWebhook(r, []byte(`{"type":"call.recording_ready","call_cid":"default:abc"}`), authedHeaders)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("response = %v", resp)
	}

	if len(svc.events) != 1 {
		t.Fatalf("dispatched %d events, want 1", len(svc.events))
	}
	if svc.events[0].Type != "call.recording_ready" {
		t.Fatalf("event type = %q", svc.events[0].Type)
	}
}

func TestWebhookErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: missing interviewId", apperrors.ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("%w: interview not found", apperrors.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: nope", apperrors.ErrUnauthorized), http.StatusUnauthorized},
		{fmt.Errorf("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r, _ := newWebhookRig(t, true, tc.err)
		w := postWebhook(r, []byte(`{"type":"call.session_started"}`), authedHeaders)
		if w.Code != tc.want {
			t.Fatalf("err %v: status = %d, want %d", tc.err, w.Code, tc.want)
		}
	}
}

func TestEnrichEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeWebhookService{}
	h := NewInterviewHandler(testutil.Logger(t), svc)
	r := gin.New()
	r.POST("/api/interviews/:id/enrich", h.Enrich)

	id := uuid.New()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/interviews/"+id.String()+"/enrich", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(svc.enriched) != 1 || svc.enriched[0] != id {
		t.Fatalf("enriched = %v", svc.enriched)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/interviews/not-a-uuid/enrich", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
