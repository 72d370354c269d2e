package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bandhanapp/backend/internal/domain/enums"
	"github.com/bandhanapp/backend/internal/domain/model"
	"github.com/bandhanapp/backend/internal/domain/rules"
	"github.com/bandhanapp/backend/internal/services/aifilter"
)

var ErrValidation = errors.New("validation error")

// Verdict is the outcome of running one message through the decision
// pipeline. Reason carries the full server-side detail; transport layers must
// map it to a coarse user-facing message.
type Verdict struct {
	Approved      bool
	Reason        string
	RequiresAdmin bool
}

type BlockStore interface {
	IsBlocked(ctx context.Context, userID int64) (bool, error)
	RegisterStrike(ctx context.Context, userID int64, threshold int, blockTTL time.Duration) (int, bool, error)
}

type ViolationStore interface {
	Create(ctx context.Context, senderID, recipientID int64, message, reason string, severity enums.ViolationSeverity) error
}

type MessageLogStore interface {
	Log(ctx context.Context, senderID, recipientID int64, message, status string, providerMessageID *string) error
}

type ReviewQueue interface {
	Enqueue(ctx context.Context, item model.ReviewItem) error
}

type AlertSink interface {
	Push(ctx context.Context, alert model.AdminAlert) error
}

// Classifier is the optional AI safety filter. A nil classifier degrades the
// pipeline to pattern-only with mandatory manual review on escalation.
type Classifier interface {
	Classify(ctx context.Context, text string) aifilter.Verdict
}

type Config struct {
	BanThreshold        int
	SuspiciousThreshold int
	AutoBlockTTL        time.Duration
}

// Service is the staged admission pipeline for outbound messages:
// block check, harmful pattern scan, suspicious escalation, AI check. Stages
// run strictly in order and short-circuit on the first terminal outcome.
// Every terminal branch writes exactly one audit artifact.
type Service struct {
	blocks     BlockStore
	violations ViolationStore
	messages   MessageLogStore
	queue      ReviewQueue
	alerts     AlertSink
	classifier Classifier
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

func NewService(blocks BlockStore, violations ViolationStore, messages MessageLogStore, queue ReviewQueue, alerts AlertSink, cfg Config, logger *zap.Logger) *Service {
	if cfg.BanThreshold <= 0 {
		cfg.BanThreshold = 3
	}
	if cfg.SuspiciousThreshold <= 0 {
		cfg.SuspiciousThreshold = rules.SuspiciousEscalation
	}
	if cfg.AutoBlockTTL <= 0 {
		cfg.AutoBlockTTL = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		blocks:     blocks,
		violations: violations,
		messages:   messages,
		queue:      queue,
		alerts:     alerts,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
}

// AttachClassifier wires the AI safety filter. Called only when the AI
// provider is configured.
func (s *Service) AttachClassifier(classifier Classifier) {
	s.classifier = classifier
}

func (s *Service) Moderate(ctx context.Context, senderID, recipientID int64, text string) (Verdict, error) {
	if senderID <= 0 || recipientID <= 0 || strings.TrimSpace(text) == "" {
		return Verdict{}, ErrValidation
	}
	if s.blocks == nil || s.violations == nil || s.messages == nil || s.queue == nil {
		return Verdict{}, fmt.Errorf("moderation service dependencies are not configured")
	}

	// Stage 1: active block flag preempts everything.
	blocked, err := s.blocks.IsBlocked(ctx, senderID)
	if err != nil {
		return Verdict{}, fmt.Errorf("check block flag: %w", err)
	}
	if blocked {
		return Verdict{Approved: false, Reason: "blocked", RequiresAdmin: false}, nil
	}

	// Stage 2: harmful patterns are an instant hard block, never escalated
	// to review.
	if rule, ok := rules.MatchHarmful(text); ok {
		reason := "Harmful content detected: " + rule
		if err := s.recordViolation(ctx, senderID, recipientID, text, reason, enums.ViolationSeverityHarmful); err != nil {
			return Verdict{}, err
		}
		s.pushAlert(ctx, model.AdminAlert{
			Subject:        "CRITICAL: Harmful content detected",
			Details:        fmt.Sprintf("User %d attempted to send harmful content: %s", senderID, rule),
			MessagePreview: preview(text),
			Severity:       enums.AlertSeverityCritical,
			Timestamp:      s.now().UTC(),
		})
		s.logger.Warn("harmful content blocked",
			zap.Int64("sender_id", senderID),
			zap.String("rule", rule),
		)
		return Verdict{Approved: false, Reason: reason, RequiresAdmin: false}, nil
	}

	// Stage 3: suspicious patterns escalate only when enough distinct rules
	// match; one signal alone is ordinary conversation.
	matches := rules.MatchSuspicious(text)
	if len(matches) >= s.cfg.SuspiciousThreshold {
		suspicionReason := "Multiple suspicious patterns: " + strings.Join(matches, ", ")

		if s.classifier == nil {
			if err := s.holdForReview(ctx, senderID, recipientID, text, suspicionReason); err != nil {
				return Verdict{}, err
			}
			return Verdict{Approved: false, Reason: "Message requires admin approval", RequiresAdmin: true}, nil
		}

		verdict := s.classifier.Classify(ctx, text)
		if !verdict.Safe {
			if err := s.recordViolation(ctx, senderID, recipientID, text, verdict.Reason, enums.ViolationSeverityAIFlagged); err != nil {
				return Verdict{}, err
			}
			if err := s.holdForReview(ctx, senderID, recipientID, text, verdict.Reason); err != nil {
				return Verdict{}, err
			}
			return Verdict{Approved: false, Reason: "Message requires admin approval", RequiresAdmin: true}, nil
		}
	}

	// Stage 4: blanket AI check for everything that reached this point.
	if s.classifier != nil {
		verdict := s.classifier.Classify(ctx, text)
		if !verdict.Safe {
			if err := s.recordViolation(ctx, senderID, recipientID, text, verdict.Reason, enums.ViolationSeverityAIFlagged); err != nil {
				return Verdict{}, err
			}
			if err := s.holdForReview(ctx, senderID, recipientID, text, verdict.Reason); err != nil {
				return Verdict{}, err
			}
			return Verdict{Approved: false, Reason: "Message requires admin approval", RequiresAdmin: true}, nil
		}
	}

	if err := s.messages.Log(ctx, senderID, recipientID, text, "approved", nil); err != nil {
		return Verdict{}, fmt.Errorf("log approved message: %w", err)
	}

	return Verdict{Approved: true, Reason: "Message approved", RequiresAdmin: false}, nil
}

// recordViolation writes the audit row and advances the strike counter,
// setting the block flag once the ban threshold is reached.
func (s *Service) recordViolation(ctx context.Context, senderID, recipientID int64, text, reason string, severity enums.ViolationSeverity) error {
	if err := s.violations.Create(ctx, senderID, recipientID, text, reason, severity); err != nil {
		return fmt.Errorf("create violation record: %w", err)
	}

	count, banned, err := s.blocks.RegisterStrike(ctx, senderID, s.cfg.BanThreshold, s.cfg.AutoBlockTTL)
	if err != nil {
		return fmt.Errorf("register strike: %w", err)
	}
	if banned {
		s.pushAlert(ctx, model.AdminAlert{
			Subject:   "CRITICAL: User auto-blocked",
			Details:   fmt.Sprintf("User %d auto-blocked after %d violations", senderID, count),
			Severity:  enums.AlertSeverityCritical,
			Timestamp: s.now().UTC(),
		})
		s.logger.Warn("sender auto-blocked",
			zap.Int64("sender_id", senderID),
			zap.Int("violations", count),
		)
	}

	return nil
}

func (s *Service) holdForReview(ctx context.Context, senderID, recipientID int64, text, reason string) error {
	item := model.ReviewItem{
		ID:          s.newID(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Message:     text,
		Reason:      reason,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("enqueue review item: %w", err)
	}

	s.pushAlert(ctx, model.AdminAlert{
		Subject:        "WhatsApp message requires review",
		Details:        fmt.Sprintf("User %d message flagged: %s", senderID, reason),
		MessagePreview: preview(text),
		Severity:       enums.AlertSeverityMedium,
		Timestamp:      s.now().UTC(),
	})

	return nil
}

// pushAlert is best-effort; the verdict must not depend on the alert feed.
func (s *Service) pushAlert(ctx context.Context, alert model.AdminAlert) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Push(ctx, alert); err != nil {
		s.logger.Error("push admin alert", zap.Error(err))
	}
}

func preview(text string) string {
	const max = 100
	if len(text) <= max {
		return text
	}
	// Back off to a rune start so the cut never splits a multi-byte sequence.
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
