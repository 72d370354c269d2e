package outbound

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bandhanapp/backend/internal/domain/rules"
	"github.com/bandhanapp/backend/internal/repo/postgres"
	"github.com/bandhanapp/backend/internal/services/moderation"
)

const (
	StatusSent          = "sent"
	StatusPendingReview = "pending_review"
	StatusRejected      = "rejected"
	StatusBlocked       = "blocked"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrNoWhatsApp        = errors.New("recipient has no whatsapp number")
	ErrNotConfigured     = errors.New("whatsapp sender is not configured")
	ErrSendFailed        = errors.New("message delivery failed")
)

type Entitlements interface {
	AdmitSend(ctx context.Context, userID int64) (rules.Entitlement, error)
}

type Recipients interface {
	GetWhatsAppNumber(ctx context.Context, userID int64) (string, error)
}

type Moderator interface {
	Moderate(ctx context.Context, senderID, recipientID int64, text string) (moderation.Verdict, error)
}

type Sender interface {
	Enabled() bool
	Send(ctx context.Context, phone, message string) (string, error)
}

type MessageLogStore interface {
	Log(ctx context.Context, senderID, recipientID int64, message, status string, providerMessageID *string) error
}

type CostTracker interface {
	RecordSend(ctx context.Context, userID int64) (float64, error)
	RecordFailure(ctx context.Context, reason string) error
}

// Result is the outcome of one send attempt. Reason carries server-side
// detail; handlers reduce it to a coarse user-facing message.
type Result struct {
	Status            string
	Reason            string
	ProviderMessageID string
	MonthlyCost       float64
}

// Service runs the full outbound pipeline: entitlement gate, recipient
// lookup, moderation, provider delivery, then cost accounting. Stages run in
// that order and the first refusal is final.
type Service struct {
	entitlements Entitlements
	recipients   Recipients
	moderator    Moderator
	sender       Sender
	messages     MessageLogStore
	costs        CostTracker
	logger       *zap.Logger
}

func NewService(entitlements Entitlements, recipients Recipients, moderator Moderator, sender Sender, messages MessageLogStore, costs CostTracker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		entitlements: entitlements,
		recipients:   recipients,
		moderator:    moderator,
		sender:       sender,
		messages:     messages,
		costs:        costs,
		logger:       logger,
	}
}

func (s *Service) Send(ctx context.Context, senderID, recipientID int64, message string) (Result, error) {
	if senderID <= 0 || recipientID <= 0 || strings.TrimSpace(message) == "" {
		return Result{}, ErrValidation
	}
	if s.entitlements == nil || s.recipients == nil || s.moderator == nil {
		return Result{}, fmt.Errorf("outbound service dependencies are not configured")
	}

	if _, err := s.entitlements.AdmitSend(ctx, senderID); err != nil {
		return Result{}, err
	}

	phone, err := s.recipients.GetWhatsAppNumber(ctx, recipientID)
	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrUserNotFound):
			return Result{}, ErrRecipientNotFound
		case errors.Is(err, postgres.ErrNoWhatsAppNumber):
			return Result{}, ErrNoWhatsApp
		default:
			return Result{}, fmt.Errorf("resolve recipient number: %w", err)
		}
	}

	verdict, err := s.moderator.Moderate(ctx, senderID, recipientID, message)
	if err != nil {
		return Result{}, err
	}
	if !verdict.Approved {
		switch {
		case verdict.Reason == "blocked":
			return Result{Status: StatusBlocked, Reason: verdict.Reason}, nil
		case verdict.RequiresAdmin:
			return Result{Status: StatusPendingReview, Reason: verdict.Reason}, nil
		default:
			return Result{Status: StatusRejected, Reason: verdict.Reason}, nil
		}
	}

	if s.sender == nil || !s.sender.Enabled() {
		return Result{}, ErrNotConfigured
	}

	providerID, err := s.sender.Send(ctx, phone, message)
	if err != nil {
		s.logger.Error("whatsapp send failed",
			zap.Int64("sender_id", senderID),
			zap.Int64("recipient_id", recipientID),
			zap.Error(err),
		)
		if s.costs != nil {
			if ferr := s.costs.RecordFailure(ctx, err.Error()); ferr != nil {
				s.logger.Error("record send failure", zap.Error(ferr))
			}
		}
		return Result{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	// Delivered; bookkeeping failures are logged, never surfaced.
	if s.messages != nil {
		if err := s.messages.Log(ctx, senderID, recipientID, message, "sent", &providerID); err != nil {
			s.logger.Error("log sent message", zap.Error(err))
		}
	}
	var monthly float64
	if s.costs != nil {
		monthly, err = s.costs.RecordSend(ctx, senderID)
		if err != nil {
			s.logger.Error("record message cost", zap.Error(err))
		}
	}

	s.logger.Info("whatsapp message sent",
		zap.Int64("sender_id", senderID),
		zap.Int64("recipient_id", recipientID),
		zap.String("provider_message_id", providerID),
	)

	return Result{Status: StatusSent, Reason: "Message sent", ProviderMessageID: providerID, MonthlyCost: monthly}, nil
}
