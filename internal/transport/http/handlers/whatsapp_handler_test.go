package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bandhanapp/backend/internal/domain/rules"
	authsvc "github.com/bandhanapp/backend/internal/services/auth"
	entsvc "github.com/bandhanapp/backend/internal/services/entitlements"
	"github.com/bandhanapp/backend/internal/services/moderation"
	outsvc "github.com/bandhanapp/backend/internal/services/outbound"
)

type stubEntitlements struct {
	err error
}

func (s *stubEntitlements) AdmitSend(_ context.Context, _ int64) (rules.Entitlement, error) {
	if s.err != nil {
		return rules.EntitlementForTier("free"), s.err
	}
	return rules.EntitlementForTier("premium"), nil
}

type stubRecipients struct{}

func (stubRecipients) GetWhatsAppNumber(_ context.Context, _ int64) (string, error) {
	return "+12025550123", nil
}

type stubModerator struct {
	verdict moderation.Verdict
}

func (s *stubModerator) Moderate(_ context.Context, _, _ int64, _ string) (moderation.Verdict, error) {
	return s.verdict, nil
}

type stubSender struct{}

func (stubSender) Enabled() bool { return true }

func (stubSender) Send(_ context.Context, _, _ string) (string, error) {
	return "wamid.test", nil
}

type nopMessageLog struct{}

func (nopMessageLog) Log(_ context.Context, _, _ int64, _, _ string, _ *string) error {
	return nil
}

type nopCostTracker struct{}

func (nopCostTracker) RecordSend(_ context.Context, _ int64) (float64, error) { return 0, nil }
func (nopCostTracker) RecordFailure(_ context.Context, _ string) error        { return nil }

func newSendHandler(ents *stubEntitlements, moderator *stubModerator) *WhatsAppHandler {
	service := outsvc.NewService(ents, stubRecipients{}, moderator, stubSender{}, nopMessageLog{}, nopCostTracker{}, nil)
	return NewWhatsAppHandler(service)
}

func doSend(t *testing.T, handler *WhatsAppHandler, withIdentity bool) *httptest.ResponseRecorder {
	t.Helper()

	body := strings.NewReader(`{"recipient_id": 8, "message": "hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/whatsapp/send", body)
	if withIdentity {
		req = req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{UserID: 7, Role: "USER"}))
	}
	rr := httptest.NewRecorder()
	handler.Send(rr, req)
	return rr
}

func TestSendHandlerDeliversApprovedMessage(t *testing.T) {
	handler := newSendHandler(&stubEntitlements{}, &stubModerator{
		verdict: moderation.Verdict{Approved: true},
	})

	rr := doSend(t, handler, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp struct {
		Status            string `json:"status"`
		ProviderMessageID string `json:"provider_message_id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "sent" || resp.ProviderMessageID != "wamid.test" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSendHandlerHoldsForReview(t *testing.T) {
	handler := newSendHandler(&stubEntitlements{}, &stubModerator{
		verdict: moderation.Verdict{Approved: false, RequiresAdmin: true, Reason: "Message requires admin approval"},
	})

	rr := doSend(t, handler, true)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusAccepted)
	}
}

func TestSendHandlerHidesModerationDetail(t *testing.T) {
	handler := newSendHandler(&stubEntitlements{}, &stubModerator{
		verdict: moderation.Verdict{Approved: false, Reason: "Harmful content detected: violence"},
	})

	rr := doSend(t, handler, true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
	if strings.Contains(rr.Body.String(), "violence") {
		t.Fatalf("rule detail leaked to the sender: %s", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "POLICY_VIOLATION") {
		t.Fatalf("expected POLICY_VIOLATION code, got %s", rr.Body.String())
	}
}

func TestSendHandlerBlockedSender(t *testing.T) {
	handler := newSendHandler(&stubEntitlements{}, &stubModerator{
		verdict: moderation.Verdict{Approved: false, Reason: "blocked"},
	})

	rr := doSend(t, handler, true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rr.Body.String(), "POLICY_VIOLATION") {
		t.Fatalf("expected POLICY_VIOLATION code, got %s", rr.Body.String())
	}
}

func TestSendHandlerForbiddenTier(t *testing.T) {
	handler := newSendHandler(&stubEntitlements{err: entsvc.ErrForbiddenTier}, &stubModerator{})

	rr := doSend(t, handler, true)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusForbidden)
	}
	if !strings.Contains(rr.Body.String(), "UPGRADE_REQUIRED") {
		t.Fatalf("expected UPGRADE_REQUIRED code, got %s", rr.Body.String())
	}
}

func TestSendHandlerRequiresIdentity(t *testing.T) {
	handler := newSendHandler(&stubEntitlements{}, &stubModerator{})

	rr := doSend(t, handler, false)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestSendHandlerRejectsBadBody(t *testing.T) {
	handler := newSendHandler(&stubEntitlements{}, &stubModerator{})

	req := httptest.NewRequest(http.MethodPost, "/whatsapp/send", strings.NewReader("{"))
	req = req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{UserID: 7}))
	rr := httptest.NewRecorder()
	handler.Send(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}
