package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bandhanapp/backend/internal/domain/model"
)

const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrReviewNotFound = errors.New("review item not found")
	ErrSendFailed     = errors.New("message delivery failed")
	ErrNotConfigured  = errors.New("whatsapp sender is not configured")
)

type Queue interface {
	ListPending(ctx context.Context, offset, limit int) ([]model.ReviewItem, error)
	Count(ctx context.Context) (int, error)
	Claim(ctx context.Context, id string) (model.ReviewItem, bool, error)
	Restore(ctx context.Context, item model.ReviewItem) error
}

type DecisionStore interface {
	Create(ctx context.Context, senderID, recipientID int64, message, decision string, adminID int64, notes string) error
}

type Recipients interface {
	GetWhatsAppNumber(ctx context.Context, userID int64) (string, error)
}

type Sender interface {
	Enabled() bool
	Send(ctx context.Context, phone, message string) (string, error)
}

type MessageLogStore interface {
	Log(ctx context.Context, senderID, recipientID int64, message, status string, providerMessageID *string) error
}

type Notifier interface {
	Enabled() bool
	Notify(ctx context.Context, userID int64, title, body string, data map[string]string) error
}

type Resolution struct {
	Decision          string
	Item              model.ReviewItem
	ProviderMessageID string
}

// Service resolves held messages. Claiming an item removes it from the queue
// atomically, so two admins racing on the same item produce exactly one
// resolution; the loser gets ErrReviewNotFound.
type Service struct {
	queue      Queue
	decisions  DecisionStore
	recipients Recipients
	sender     Sender
	messages   MessageLogStore
	notifier   Notifier
	logger     *zap.Logger
}

func NewService(queue Queue, decisions DecisionStore, recipients Recipients, sender Sender, messages MessageLogStore, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		queue:      queue,
		decisions:  decisions,
		recipients: recipients,
		sender:     sender,
		messages:   messages,
		notifier:   notifier,
		logger:     logger,
	}
}

func (s *Service) Pending(ctx context.Context, offset, limit int) ([]model.ReviewItem, int, error) {
	if s.queue == nil {
		return nil, 0, fmt.Errorf("review queue is not configured")
	}
	items, err := s.queue.ListPending(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list pending reviews: %w", err)
	}
	total, err := s.queue.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count pending reviews: %w", err)
	}
	return items, total, nil
}

func (s *Service) Resolve(ctx context.Context, reviewID, decision, notes string, adminID int64) (Resolution, error) {
	decision = strings.ToLower(strings.TrimSpace(decision))
	if strings.TrimSpace(reviewID) == "" || (decision != DecisionApprove && decision != DecisionReject) {
		return Resolution{}, ErrValidation
	}
	if s.queue == nil || s.decisions == nil {
		return Resolution{}, fmt.Errorf("review service dependencies are not configured")
	}

	item, ok, err := s.queue.Claim(ctx, reviewID)
	if err != nil {
		return Resolution{}, fmt.Errorf("claim review item: %w", err)
	}
	if !ok {
		return Resolution{}, ErrReviewNotFound
	}

	if decision == DecisionReject {
		return s.reject(ctx, item, notes, adminID)
	}
	return s.approve(ctx, item, notes, adminID)
}

func (s *Service) approve(ctx context.Context, item model.ReviewItem, notes string, adminID int64) (Resolution, error) {
	if s.sender == nil || !s.sender.Enabled() {
		s.restore(ctx, item)
		return Resolution{}, ErrNotConfigured
	}

	phone, err := s.recipients.GetWhatsAppNumber(ctx, item.RecipientID)
	if err != nil {
		s.restore(ctx, item)
		return Resolution{}, fmt.Errorf("resolve recipient number: %w", err)
	}

	providerID, err := s.sender.Send(ctx, phone, item.Message)
	if err != nil {
		s.restore(ctx, item)
		s.logger.Error("review approval delivery failed",
			zap.String("review_id", item.ID),
			zap.Error(err),
		)
		return Resolution{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	// The message is delivered at this point; bookkeeping failures are
	// logged but must not fail the resolution or restore the item.
	if err := s.messages.Log(ctx, item.SenderID, item.RecipientID, item.Message, "sent_after_review", &providerID); err != nil {
		s.logger.Error("log reviewed message", zap.String("review_id", item.ID), zap.Error(err))
	}
	if err := s.decisions.Create(ctx, item.SenderID, item.RecipientID, item.Message, DecisionApprove, adminID, notes); err != nil {
		s.logger.Error("record review decision", zap.String("review_id", item.ID), zap.Error(err))
	}

	s.notify(ctx, item.SenderID, "Message delivered", "Your message was approved and delivered.")

	s.logger.Info("review approved",
		zap.String("review_id", item.ID),
		zap.Int64("admin_id", adminID),
		zap.Int64("sender_id", item.SenderID),
	)

	return Resolution{Decision: DecisionApprove, Item: item, ProviderMessageID: providerID}, nil
}

func (s *Service) reject(ctx context.Context, item model.ReviewItem, notes string, adminID int64) (Resolution, error) {
	if err := s.decisions.Create(ctx, item.SenderID, item.RecipientID, item.Message, DecisionReject, adminID, notes); err != nil {
		s.restore(ctx, item)
		return Resolution{}, fmt.Errorf("record review decision: %w", err)
	}

	// The notice stays generic so the rejection reason never leaks filter
	// detail back to the sender.
	s.notify(ctx, item.SenderID, "Message not delivered", "Your message could not be delivered.")

	s.logger.Info("review rejected",
		zap.String("review_id", item.ID),
		zap.Int64("admin_id", adminID),
		zap.Int64("sender_id", item.SenderID),
	)

	return Resolution{Decision: DecisionReject, Item: item}, nil
}

func (s *Service) restore(ctx context.Context, item model.ReviewItem) {
	if err := s.queue.Restore(ctx, item); err != nil {
		s.logger.Error("restore review item", zap.String("review_id", item.ID), zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, userID int64, title, body string) {
	if s.notifier == nil || !s.notifier.Enabled() {
		return
	}
	if err := s.notifier.Notify(ctx, userID, title, body, nil); err != nil {
		s.logger.Error("notify sender", zap.Int64("user_id", userID), zap.Error(err))
	}
}
