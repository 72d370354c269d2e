package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/bandhanapp/backend/internal/domain/enums"
	"github.com/bandhanapp/backend/internal/domain/model"
	redrepo "github.com/bandhanapp/backend/internal/repo/redis"
	authsvc "github.com/bandhanapp/backend/internal/services/auth"
	reviewsvc "github.com/bandhanapp/backend/internal/services/review"
)

type fakeBlockAdmin struct {
	blocked   map[int64]enums.BlockReason
	unblocked []int64
}

func newFakeBlockAdmin() *fakeBlockAdmin {
	return &fakeBlockAdmin{blocked: make(map[int64]enums.BlockReason)}
}

func (f *fakeBlockAdmin) IsBlocked(_ context.Context, userID int64) (bool, error) {
	_, ok := f.blocked[userID]
	return ok, nil
}

func (f *fakeBlockAdmin) Block(_ context.Context, userID int64, reason enums.BlockReason, _ time.Duration) error {
	f.blocked[userID] = reason
	return nil
}

func (f *fakeBlockAdmin) Unblock(_ context.Context, userID int64) error {
	delete(f.blocked, userID)
	f.unblocked = append(f.unblocked, userID)
	return nil
}

type nopDecisionStore struct{}

func (nopDecisionStore) Create(_ context.Context, _, _ int64, _, _ string, _ int64, _ string) error {
	return nil
}

type adminRecipients struct{}

func (adminRecipients) GetWhatsAppNumber(_ context.Context, _ int64) (string, error) {
	return "+12025550123", nil
}

func newAdminRouter(t *testing.T, handler *AdminWhatsAppHandler) http.Handler {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/whatsapp/admin/pending-reviews", handler.PendingReviews)
	r.Post("/whatsapp/admin/review", handler.Review)
	r.Get("/whatsapp/admin/violations", handler.Violations)
	r.Post("/whatsapp/admin/block-user/{id}", handler.BlockUser)
	r.Delete("/whatsapp/admin/unblock-user/{id}", handler.UnblockUser)
	return r
}

func adminRequest(method, target string, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{
		UserID: 99,
		Role:   authsvc.RoleAdmin,
	}))
}

func newReviewBackedHandler(t *testing.T, blocks *fakeBlockAdmin) (*AdminWhatsAppHandler, *redrepo.ReviewQueueRepo, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	queue := redrepo.NewReviewQueueRepo(client)

	reviewService := reviewsvc.NewService(queue, nopDecisionStore{}, adminRecipients{}, stubSender{}, nopMessageLog{}, nil, nil)
	handler := NewAdminWhatsAppHandler(reviewService, nil, nil, nil, blocks, 0)
	return handler, queue, mr
}

func TestAdminEndpointsRejectNonAdmin(t *testing.T) {
	handler := NewAdminWhatsAppHandler(nil, nil, nil, nil, nil, 0)
	router := newAdminRouter(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/whatsapp/admin/violations", nil)
	req = req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{UserID: 7, Role: "USER"}))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusForbidden)
	}
}

func TestPendingReviewsListsQueuedItems(t *testing.T) {
	handler, queue, mr := newReviewBackedHandler(t, nil)
	defer mr.Close()

	item := model.ReviewItem{
		ID:          "rev-1",
		SenderID:    7,
		RecipientID: 8,
		Message:     "Let's meet at the hotel, bring cash",
		Reason:      "Multiple suspicious patterns: meeting, money",
		CreatedAt:   time.Now().UTC(),
	}
	if err := queue.Enqueue(context.Background(), item); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	rr := httptest.NewRecorder()
	newAdminRouter(t, handler).ServeHTTP(rr, adminRequest(http.MethodGet, "/whatsapp/admin/pending-reviews", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Items) != 1 || resp.Items[0].ID != "rev-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestReviewEndpointResolvesAndReportsMissing(t *testing.T) {
	handler, queue, mr := newReviewBackedHandler(t, nil)
	defer mr.Close()
	router := newAdminRouter(t, handler)

	item := model.ReviewItem{
		ID:          "rev-1",
		SenderID:    7,
		RecipientID: 8,
		Message:     "held message",
		Reason:      "flagged",
		CreatedAt:   time.Now().UTC(),
	}
	if err := queue.Enqueue(context.Background(), item); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, adminRequest(http.MethodPost, "/whatsapp/admin/review", `{"review_id":"rev-1","decision":"approve"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, adminRequest(http.MethodPost, "/whatsapp/admin/review", `{"review_id":"rev-1","decision":"approve"}`))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second resolve, got %d", rr.Code)
	}
}

func TestBlockAndUnblockUser(t *testing.T) {
	blocks := newFakeBlockAdmin()
	handler := NewAdminWhatsAppHandler(nil, nil, nil, nil, blocks, 0)
	router := newAdminRouter(t, handler)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, adminRequest(http.MethodPost, "/whatsapp/admin/block-user/42", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("block: unexpected status %d body=%s", rr.Code, rr.Body.String())
	}
	if blocks.blocked[42] != enums.BlockReasonManual {
		t.Fatalf("expected manual block reason, got %q", blocks.blocked[42])
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, adminRequest(http.MethodDelete, "/whatsapp/admin/unblock-user/42", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("unblock: unexpected status %d", rr.Code)
	}
	if len(blocks.unblocked) != 1 || blocks.unblocked[0] != 42 {
		t.Fatalf("unexpected unblocks: %v", blocks.unblocked)
	}
}

func TestBlockUserRejectsInvalidID(t *testing.T) {
	handler := NewAdminWhatsAppHandler(nil, nil, nil, nil, newFakeBlockAdmin(), 0)
	router := newAdminRouter(t, handler)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, adminRequest(http.MethodPost, "/whatsapp/admin/block-user/abc", ""))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}
