package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	authsvc "github.com/bandhanapp/backend/internal/services/auth"
	entsvc "github.com/bandhanapp/backend/internal/services/entitlements"
	outsvc "github.com/bandhanapp/backend/internal/services/outbound"
	"github.com/bandhanapp/backend/internal/transport/http/dto"
	httperrors "github.com/bandhanapp/backend/internal/transport/http/errors"
)

type WhatsAppHandler struct {
	service *outsvc.Service
}

func NewWhatsAppHandler(service *outsvc.Service) *WhatsAppHandler {
	return &WhatsAppHandler{service: service}
}

// Send handles POST /whatsapp/send. Moderation refusals come back with 2xx/4xx
// statuses carrying only coarse reasons; filter detail stays server-side.
func (h *WhatsAppHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "WHATSAPP_SERVICE_UNAVAILABLE", "whatsapp service is unavailable")
		return
	}

	var req dto.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "INVALID_BODY", "invalid request body")
		return
	}

	result, err := h.service.Send(r.Context(), identity.UserID, req.RecipientID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, outsvc.ErrValidation), errors.Is(err, entsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "recipient_id and message are required")
		case errors.Is(err, entsvc.ErrForbiddenTier):
			writeForbidden(w, "UPGRADE_REQUIRED", "upgrade to premium to send whatsapp messages")
		case errors.Is(err, outsvc.ErrRecipientNotFound):
			writeNotFound(w, "RECIPIENT_NOT_FOUND", "recipient not found")
		case errors.Is(err, outsvc.ErrNoWhatsApp):
			writeNotFound(w, "NO_WHATSAPP_NUMBER", "recipient has no whatsapp number")
		case errors.Is(err, outsvc.ErrNotConfigured):
			httperrors.Write(w, http.StatusServiceUnavailable, httperrors.APIError{
				Code:    "WHATSAPP_DISABLED",
				Message: "whatsapp delivery is not configured",
			})
		case errors.Is(err, outsvc.ErrSendFailed):
			httperrors.Write(w, http.StatusBadGateway, httperrors.APIError{
				Code:    "SEND_FAILED",
				Message: "message could not be delivered",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to send message")
		}
		return
	}

	switch result.Status {
	case outsvc.StatusBlocked, outsvc.StatusRejected:
		// One generic refusal for both an active block and a content match, so
		// the response does not reveal which filter tripped.
		writeBadRequest(w, "POLICY_VIOLATION", "message blocked for policy violation")
	case outsvc.StatusPendingReview:
		httperrors.Write(w, http.StatusAccepted, dto.SendMessageResponse{
			Status: result.Status,
			Detail: "message held for admin review",
		})
	default:
		httperrors.Write(w, http.StatusOK, dto.SendMessageResponse{
			Status:            result.Status,
			Detail:            "message sent",
			ProviderMessageID: result.ProviderMessageID,
			MonthlyCost:       result.MonthlyCost,
		})
	}
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeForbidden(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusForbidden, httperrors.APIError{Code: code, Message: message})
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusNotFound, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}
