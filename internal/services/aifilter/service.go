package aifilter

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	categoricalInstruction = "You are a content safety classifier. " +
		"Classify the user message against these categories: violence, harassment, hate, sexual, self-harm, illicit. " +
		"Respond with the comma-separated list of categories the message violates, or NONE if it violates none. " +
		"Respond with the list only, no explanation."

	contextualInstruction = "You are a content moderator for a premium matrimony platform. " +
		"Analyze if this message is appropriate for WhatsApp communication between potential matches. " +
		"Consider: safety, appropriateness, scam indicators, harmful intent. " +
		"Respond with SAFE or UNSAFE followed by reason."

	unavailableReason = "AI moderation unavailable"
)

type Verdict struct {
	Safe   bool
	Reason string
}

// Generator is the text completion primitive behind both classification
// steps.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type Config struct {
	Timeout time.Duration
}

// Service wraps two classification calls into one safe/unsafe verdict: a
// categorical pass first, then a contextual-intent pass when the categorical
// pass is clean. Every failure path constructs an unsafe verdict; this filter
// stands between a user and an irreversible external channel and must never
// fail open.
type Service struct {
	generator Generator
	cfg       Config
	logger    *zap.Logger
}

func NewService(generator Generator, cfg Config, logger *zap.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *Service) Classify(ctx context.Context, text string) Verdict {
	if s == nil || s.generator == nil {
		return Verdict{Safe: false, Reason: unavailableReason}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	categories, err := s.generator.Generate(ctx, categoricalInstruction, text)
	if err != nil {
		s.logger.Error("ai categorical check failed", zap.Error(err))
		return Verdict{Safe: false, Reason: unavailableReason}
	}
	if flagged, ok := parseCategories(categories); ok {
		return Verdict{Safe: false, Reason: "AI flagged: " + flagged}
	}

	verdict, err := s.generator.Generate(ctx, contextualInstruction, text)
	if err != nil {
		s.logger.Error("ai contextual check failed", zap.Error(err))
		return Verdict{Safe: false, Reason: unavailableReason}
	}

	verdict = strings.TrimSpace(verdict)
	upper := strings.ToUpper(verdict)
	switch {
	case strings.HasPrefix(upper, "UNSAFE"):
		reason := strings.TrimSpace(strings.TrimLeft(verdict[len("UNSAFE"):], ":- "))
		if reason == "" {
			reason = "flagged by contextual review"
		}
		return Verdict{Safe: false, Reason: reason}
	case strings.HasPrefix(upper, "SAFE"):
		return Verdict{Safe: true, Reason: "AI approved"}
	default:
		// Anything else is a malformed model response, treat as unsafe.
		return Verdict{Safe: false, Reason: unavailableReason}
	}
}

func parseCategories(raw string) (string, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" || strings.EqualFold(cleaned, "NONE") {
		return "", false
	}

	var flagged []string
	for _, part := range strings.Split(cleaned, ",") {
		if part = strings.TrimSpace(part); part != "" && !strings.EqualFold(part, "NONE") {
			flagged = append(flagged, strings.ToLower(part))
		}
	}
	if len(flagged) == 0 {
		return "", false
	}

	return strings.Join(flagged, ", "), true
}
