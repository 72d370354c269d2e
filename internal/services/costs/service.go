package costs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/bandhanapp/backend/internal/domain/enums"
	"github.com/bandhanapp/backend/internal/domain/model"
	redisrepo "github.com/bandhanapp/backend/internal/repo/redis"
)

const monthKeyLayout = "200601"

// Top spenders kept in the admin report.
const reportTopSpenders = 20

// Month keys are kept long enough to read last month's report after rollover.
const costRetention = 60 * 24 * time.Hour

type Ledger interface {
	IncrMonthly(ctx context.Context, userID int64, month string, cost float64, ttl time.Duration) (float64, error)
	GetMonthly(ctx context.Context, userID int64, month string) (float64, error)
	ListMonth(ctx context.Context, month string) ([]redisrepo.UserCost, error)
}

type FailureCounter interface {
	Register(ctx context.Context, threshold int, window time.Duration) (int, bool, error)
}

type AlertSink interface {
	Push(ctx context.Context, alert model.AdminAlert) error
}

type Mailer interface {
	Enabled() bool
	Send(to []string, subject, body string) error
}

type Config struct {
	PerMessageCost   float64
	CostThreshold    float64
	FailureThreshold int
	FailureWindow    time.Duration
	AdminEmails      []string
}

// Service keeps the per-user monthly spend ledger and the rolling delivery
// failure counter, raising admin alerts when either crosses its threshold.
type Service struct {
	ledger   Ledger
	failures FailureCounter
	alerts   AlertSink
	mailer   Mailer
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(ledger Ledger, failures FailureCounter, alerts AlertSink, mailer Mailer, cfg Config, logger *zap.Logger) *Service {
	if cfg.PerMessageCost <= 0 {
		cfg.PerMessageCost = 0.005
	}
	if cfg.CostThreshold <= 0 {
		cfg.CostThreshold = 100
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 10
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ledger:   ledger,
		failures: failures,
		alerts:   alerts,
		mailer:   mailer,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) currentMonth() string {
	return s.now().UTC().Format(monthKeyLayout)
}

// RecordSend charges one delivered message to the sender's monthly total. The
// cost alert is informational and fires on every send while the user stays
// over the threshold.
func (s *Service) RecordSend(ctx context.Context, userID int64) (float64, error) {
	if s.ledger == nil {
		return 0, fmt.Errorf("cost ledger is not configured")
	}

	total, err := s.ledger.IncrMonthly(ctx, userID, s.currentMonth(), s.cfg.PerMessageCost, costRetention)
	if err != nil {
		return 0, fmt.Errorf("record message cost: %w", err)
	}

	if total > s.cfg.CostThreshold {
		s.pushAlert(ctx, model.AdminAlert{
			Subject:   "WhatsApp cost threshold exceeded",
			Details:   fmt.Sprintf("User %d monthly WhatsApp spend reached $%.2f", userID, total),
			Severity:  enums.AlertSeverityMedium,
			Timestamp: s.now().UTC(),
		})
	}

	return total, nil
}

// RecordFailure advances the global failure counter. On the threshold hit the
// counter resets and admins are alerted, so each burst page at most once.
func (s *Service) RecordFailure(ctx context.Context, reason string) error {
	if s.failures == nil {
		return fmt.Errorf("failure counter is not configured")
	}

	count, hit, err := s.failures.Register(ctx, s.cfg.FailureThreshold, s.cfg.FailureWindow)
	if err != nil {
		return fmt.Errorf("register send failure: %w", err)
	}
	if !hit {
		return nil
	}

	details := fmt.Sprintf("%d WhatsApp send failures within %s, last error: %s", count, s.cfg.FailureWindow, reason)
	s.pushAlert(ctx, model.AdminAlert{
		Subject:   "HIGH: WhatsApp delivery failures",
		Details:   details,
		Severity:  enums.AlertSeverityHigh,
		Timestamp: s.now().UTC(),
	})

	if s.mailer != nil && s.mailer.Enabled() && len(s.cfg.AdminEmails) > 0 {
		if err := s.mailer.Send(s.cfg.AdminEmails, "WhatsApp delivery failures", details); err != nil {
			s.logger.Error("send failure alert mail", zap.Error(err))
		}
	}

	s.logger.Warn("whatsapp failure threshold hit", zap.Int("count", count))
	return nil
}

func (s *Service) UserMonthlyCost(ctx context.Context, userID int64) (float64, error) {
	if s.ledger == nil {
		return 0, fmt.Errorf("cost ledger is not configured")
	}
	total, err := s.ledger.GetMonthly(ctx, userID, s.currentMonth())
	if err != nil {
		return 0, fmt.Errorf("get monthly cost: %w", err)
	}
	return total, nil
}

// Report is the admin view of the current month: grand total across all
// users, entries limited to the top spenders in descending order.
type Report struct {
	Month   string
	Total   float64
	Entries []redisrepo.UserCost
}

func (s *Service) MonthlyReport(ctx context.Context) (Report, error) {
	if s.ledger == nil {
		return Report{}, fmt.Errorf("cost ledger is not configured")
	}
	month := s.currentMonth()
	entries, err := s.ledger.ListMonth(ctx, month)
	if err != nil {
		return Report{}, fmt.Errorf("list monthly costs: %w", err)
	}
	var total float64
	for _, e := range entries {
		total += e.Cost
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Cost > entries[j].Cost })
	if len(entries) > reportTopSpenders {
		entries = entries[:reportTopSpenders]
	}
	return Report{Month: month, Total: total, Entries: entries}, nil
}

func (s *Service) pushAlert(ctx context.Context, alert model.AdminAlert) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Push(ctx, alert); err != nil {
		s.logger.Error("push admin alert", zap.Error(err))
	}
}
