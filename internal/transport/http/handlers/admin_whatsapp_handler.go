package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bandhanapp/backend/internal/domain/enums"
	"github.com/bandhanapp/backend/internal/domain/model"
	authsvc "github.com/bandhanapp/backend/internal/services/auth"
	costsvc "github.com/bandhanapp/backend/internal/services/costs"
	reviewsvc "github.com/bandhanapp/backend/internal/services/review"
	"github.com/bandhanapp/backend/internal/transport/http/dto"
	httperrors "github.com/bandhanapp/backend/internal/transport/http/errors"
)

const (
	defaultReviewPageSize = 50
	defaultViolationLimit = 50
	defaultAlertLimit     = 50
)

type ViolationLister interface {
	ListRecent(ctx context.Context, limit int) ([]model.Violation, error)
}

type AlertLister interface {
	List(ctx context.Context, limit int) ([]model.AdminAlert, error)
}

type BlockAdmin interface {
	IsBlocked(ctx context.Context, userID int64) (bool, error)
	Block(ctx context.Context, userID int64, reason enums.BlockReason, ttl time.Duration) error
	Unblock(ctx context.Context, userID int64) error
}

type AdminWhatsAppHandler struct {
	reviews        *reviewsvc.Service
	costs          *costsvc.Service
	violations     ViolationLister
	alerts         AlertLister
	blocks         BlockAdmin
	manualBlockTTL time.Duration
}

func NewAdminWhatsAppHandler(reviews *reviewsvc.Service, costs *costsvc.Service, violations ViolationLister, alerts AlertLister, blocks BlockAdmin, manualBlockTTL time.Duration) *AdminWhatsAppHandler {
	if manualBlockTTL <= 0 {
		manualBlockTTL = 30 * 24 * time.Hour
	}
	return &AdminWhatsAppHandler{
		reviews:        reviews,
		costs:          costs,
		violations:     violations,
		alerts:         alerts,
		blocks:         blocks,
		manualBlockTTL: manualBlockTTL,
	}
}

func (h *AdminWhatsAppHandler) PendingReviews(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	if h.reviews == nil {
		writeInternal(w, "REVIEW_SERVICE_UNAVAILABLE", "review service is unavailable")
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", defaultReviewPageSize)

	items, total, err := h.reviews.Pending(r.Context(), offset, limit)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load pending reviews")
		return
	}

	resp := dto.PendingReviewsResponse{Items: make([]dto.ReviewItemDTO, 0, len(items)), Total: total}
	for _, item := range items {
		resp.Items = append(resp.Items, dto.ReviewItemDTO{
			ID:          item.ID,
			SenderID:    item.SenderID,
			RecipientID: item.RecipientID,
			Message:     item.Message,
			Reason:      item.Reason,
			CreatedAt:   item.CreatedAt,
		})
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *AdminWhatsAppHandler) Review(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.adminIdentity(w, r)
	if !ok {
		return
	}
	if h.reviews == nil {
		writeInternal(w, "REVIEW_SERVICE_UNAVAILABLE", "review service is unavailable")
		return
	}

	var req dto.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "INVALID_BODY", "invalid request body")
		return
	}

	resolution, err := h.reviews.Resolve(r.Context(), req.ReviewID, req.Decision, req.Notes, identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, reviewsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "review_id and a decision of approve or reject are required")
		case errors.Is(err, reviewsvc.ErrReviewNotFound):
			writeNotFound(w, "REVIEW_NOT_FOUND", "review item not found or already resolved")
		case errors.Is(err, reviewsvc.ErrNotConfigured):
			httperrors.Write(w, http.StatusServiceUnavailable, httperrors.APIError{
				Code:    "WHATSAPP_DISABLED",
				Message: "whatsapp delivery is not configured",
			})
		case errors.Is(err, reviewsvc.ErrSendFailed):
			httperrors.Write(w, http.StatusBadGateway, httperrors.APIError{
				Code:    "SEND_FAILED",
				Message: "message could not be delivered, item returned to the queue",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to resolve review")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ReviewResponse{
		ReviewID:          resolution.Item.ID,
		Decision:          resolution.Decision,
		ProviderMessageID: resolution.ProviderMessageID,
	})
}

func (h *AdminWhatsAppHandler) Violations(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	if h.violations == nil {
		writeInternal(w, "VIOLATION_STORE_UNAVAILABLE", "violation store is unavailable")
		return
	}

	limit := queryInt(r, "limit", defaultViolationLimit)
	items, err := h.violations.ListRecent(r.Context(), limit)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load violations")
		return
	}

	resp := dto.ViolationsResponse{Items: make([]dto.ViolationDTO, 0, len(items))}
	for _, v := range items {
		resp.Items = append(resp.Items, dto.ViolationDTO{
			ID:          v.ID,
			SenderID:    v.SenderID,
			RecipientID: v.RecipientID,
			Message:     v.Message,
			Reason:      v.Reason,
			Severity:    string(v.Severity),
			CreatedAt:   v.CreatedAt,
		})
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *AdminWhatsAppHandler) Costs(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	if h.costs == nil {
		writeInternal(w, "COST_SERVICE_UNAVAILABLE", "cost service is unavailable")
		return
	}

	report, err := h.costs.MonthlyReport(r.Context())
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load cost report")
		return
	}

	resp := dto.CostsResponse{
		Month: report.Month,
		Total: report.Total,
		Users: make([]dto.UserCostDTO, 0, len(report.Entries)),
	}
	for _, e := range report.Entries {
		resp.Users = append(resp.Users, dto.UserCostDTO{UserID: e.UserID, Cost: e.Cost})
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *AdminWhatsAppHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	if h.alerts == nil {
		writeInternal(w, "ALERT_STORE_UNAVAILABLE", "alert store is unavailable")
		return
	}

	limit := queryInt(r, "limit", defaultAlertLimit)
	items, err := h.alerts.List(r.Context(), limit)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load alerts")
		return
	}

	resp := dto.AlertsResponse{Items: make([]dto.AlertDTO, 0, len(items))}
	for _, a := range items {
		resp.Items = append(resp.Items, dto.AlertDTO{
			Subject:        a.Subject,
			Details:        a.Details,
			MessagePreview: a.MessagePreview,
			Severity:       string(a.Severity),
			Timestamp:      a.Timestamp,
		})
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *AdminWhatsAppHandler) BlockUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	if h.blocks == nil {
		writeInternal(w, "BLOCK_STORE_UNAVAILABLE", "block store is unavailable")
		return
	}

	if err := h.blocks.Block(r.Context(), userID, enums.BlockReasonManual, h.manualBlockTTL); err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to block user")
		return
	}
	httperrors.Write(w, http.StatusOK, dto.BlockStatusResponse{UserID: userID, Blocked: true})
}

func (h *AdminWhatsAppHandler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	if h.blocks == nil {
		writeInternal(w, "BLOCK_STORE_UNAVAILABLE", "block store is unavailable")
		return
	}

	if err := h.blocks.Unblock(r.Context(), userID); err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to unblock user")
		return
	}
	httperrors.Write(w, http.StatusOK, dto.BlockStatusResponse{UserID: userID, Blocked: false})
}

func (h *AdminWhatsAppHandler) adminIdentity(w http.ResponseWriter, r *http.Request) (authsvc.Identity, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return authsvc.Identity{}, false
	}
	if identity.Role != authsvc.RoleAdmin {
		writeForbidden(w, "FORBIDDEN", "admin role required")
		return authsvc.Identity{}, false
	}
	return identity, true
}

func (h *AdminWhatsAppHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	_, ok := h.adminIdentity(w, r)
	return ok
}

func (h *AdminWhatsAppHandler) pathUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		writeBadRequest(w, "INVALID_USER_ID", "user id must be a positive integer")
		return 0, false
	}
	return userID, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
