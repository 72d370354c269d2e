package moderation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bandhanapp/backend/internal/domain/enums"
	"github.com/bandhanapp/backend/internal/domain/model"
	"github.com/bandhanapp/backend/internal/services/aifilter"
)

type fakeBlockStore struct {
	blocked map[int64]bool
	strikes map[int64]int
}

func newFakeBlockStore() *fakeBlockStore {
	return &fakeBlockStore{
		blocked: make(map[int64]bool),
		strikes: make(map[int64]int),
	}
}

func (s *fakeBlockStore) IsBlocked(_ context.Context, userID int64) (bool, error) {
	return s.blocked[userID], nil
}

func (s *fakeBlockStore) RegisterStrike(_ context.Context, userID int64, threshold int, _ time.Duration) (int, bool, error) {
	s.strikes[userID]++
	count := s.strikes[userID]
	if count >= threshold {
		delete(s.strikes, userID)
		s.blocked[userID] = true
		return count, true, nil
	}
	return count, false, nil
}

type violationRecord struct {
	SenderID int64
	Reason   string
	Severity enums.ViolationSeverity
}

type fakeViolationStore struct {
	records []violationRecord
}

func (s *fakeViolationStore) Create(_ context.Context, senderID, _ int64, _, reason string, severity enums.ViolationSeverity) error {
	s.records = append(s.records, violationRecord{SenderID: senderID, Reason: reason, Severity: severity})
	return nil
}

type logRecord struct {
	SenderID int64
	Status   string
}

type fakeMessageLog struct {
	records []logRecord
}

func (s *fakeMessageLog) Log(_ context.Context, senderID, _ int64, _, status string, _ *string) error {
	s.records = append(s.records, logRecord{SenderID: senderID, Status: status})
	return nil
}

type fakeReviewQueue struct {
	items []model.ReviewItem
}

func (q *fakeReviewQueue) Enqueue(_ context.Context, item model.ReviewItem) error {
	q.items = append(q.items, item)
	return nil
}

type fakeAlertSink struct {
	alerts []model.AdminAlert
}

func (s *fakeAlertSink) Push(_ context.Context, alert model.AdminAlert) error {
	s.alerts = append(s.alerts, alert)
	return nil
}

type stubClassifier struct {
	verdict aifilter.Verdict
	calls   int
}

func (c *stubClassifier) Classify(_ context.Context, _ string) aifilter.Verdict {
	c.calls++
	return c.verdict
}

type fixture struct {
	service    *Service
	blocks     *fakeBlockStore
	violations *fakeViolationStore
	messages   *fakeMessageLog
	queue      *fakeReviewQueue
	alerts     *fakeAlertSink
}

func newFixture() *fixture {
	f := &fixture{
		blocks:     newFakeBlockStore(),
		violations: &fakeViolationStore{},
		messages:   &fakeMessageLog{},
		queue:      &fakeReviewQueue{},
		alerts:     &fakeAlertSink{},
	}
	f.service = NewService(f.blocks, f.violations, f.messages, f.queue, f.alerts, Config{}, nil)
	return f
}

func TestModerateHarmfulContentIsTerminal(t *testing.T) {
	f := newFixture()
	classifier := &stubClassifier{verdict: aifilter.Verdict{Safe: true}}
	f.service.AttachClassifier(classifier)

	verdict, err := f.service.Moderate(context.Background(), 7, 8, "I will kill you")
	if err != nil {
		t.Fatalf("moderate: %v", err)
	}
	if verdict.Approved || verdict.RequiresAdmin {
		t.Fatalf("expected terminal rejection, got %+v", verdict)
	}
	if classifier.calls != 0 {
		t.Fatalf("harmful match must not reach the classifier, got %d calls", classifier.calls)
	}
	if len(f.queue.items) != 0 {
		t.Fatalf("harmful match must not be queued, got %d items", len(f.queue.items))
	}
	if len(f.violations.records) != 1 || f.violations.records[0].Severity != enums.ViolationSeverityHarmful {
		t.Fatalf("expected one harmful violation, got %+v", f.violations.records)
	}
	if f.blocks.strikes[7] != 1 {
		t.Fatalf("expected one strike, got %d", f.blocks.strikes[7])
	}
	if len(f.alerts.alerts) != 1 || f.alerts.alerts[0].Severity != enums.AlertSeverityCritical {
		t.Fatalf("expected one critical alert, got %+v", f.alerts.alerts)
	}
}

func TestModerateThirdStrikeBlocksSender(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		verdict, err := f.service.Moderate(ctx, 7, 8, "send me your password: qwerty")
		if err != nil {
			t.Fatalf("moderate #%d: %v", i+1, err)
		}
		if verdict.Approved {
			t.Fatalf("violation #%d unexpectedly approved", i+1)
		}
	}

	if !f.blocks.blocked[7] {
		t.Fatal("expected sender blocked after third violation")
	}
	if len(f.violations.records) != 3 {
		t.Fatalf("expected three violations, got %d", len(f.violations.records))
	}

	// Once blocked, the pipeline short-circuits before the pattern scan.
	verdict, err := f.service.Moderate(ctx, 7, 8, "hello")
	if err != nil {
		t.Fatalf("moderate while blocked: %v", err)
	}
	if verdict.Reason != "blocked" {
		t.Fatalf("expected blocked verdict, got %+v", verdict)
	}
	if len(f.violations.records) != 3 {
		t.Fatalf("blocked sender must not accrue violations, got %d", len(f.violations.records))
	}
}

func TestModerateSingleSuspiciousSignalApproved(t *testing.T) {
	f := newFixture()

	verdict, err := f.service.Moderate(context.Background(), 7, 8, "Would you like to meet our families?")
	if err != nil {
		t.Fatalf("moderate: %v", err)
	}
	if !verdict.Approved {
		t.Fatalf("expected approval on a single suspicious signal, got %+v", verdict)
	}
	if len(f.queue.items) != 0 {
		t.Fatalf("unexpected review items: %+v", f.queue.items)
	}
	if len(f.messages.records) != 1 || f.messages.records[0].Status != "approved" {
		t.Fatalf("expected approved message log, got %+v", f.messages.records)
	}
}

func TestModerateSuspiciousEscalationWithoutAIGoesToReview(t *testing.T) {
	f := newFixture()

	verdict, err := f.service.Moderate(context.Background(), 7, 8, "Let's meet at the hotel, bring cash")
	if err != nil {
		t.Fatalf("moderate: %v", err)
	}
	if verdict.Approved || !verdict.RequiresAdmin {
		t.Fatalf("expected review hold, got %+v", verdict)
	}
	if len(f.queue.items) != 1 {
		t.Fatalf("expected one review item, got %d", len(f.queue.items))
	}
	item := f.queue.items[0]
	if item.ID == "" {
		t.Fatal("review item must get a stable id at enqueue time")
	}
	if !strings.Contains(item.Reason, "meeting") || !strings.Contains(item.Reason, "money") {
		t.Fatalf("unexpected review reason: %q", item.Reason)
	}
	if len(f.violations.records) != 0 {
		t.Fatalf("pattern-only escalation must not create violations, got %+v", f.violations.records)
	}
	if len(f.alerts.alerts) != 1 || f.alerts.alerts[0].Severity != enums.AlertSeverityMedium {
		t.Fatalf("expected one medium alert, got %+v", f.alerts.alerts)
	}
}

func TestModerateSuspiciousEscalationAIUnsafe(t *testing.T) {
	f := newFixture()
	classifier := &stubClassifier{verdict: aifilter.Verdict{Safe: false, Reason: "romance scam indicators"}}
	f.service.AttachClassifier(classifier)

	verdict, err := f.service.Moderate(context.Background(), 7, 8, "Let's meet at the hotel, bring cash")
	if err != nil {
		t.Fatalf("moderate: %v", err)
	}
	if verdict.Approved || !verdict.RequiresAdmin {
		t.Fatalf("expected review hold, got %+v", verdict)
	}
	if classifier.calls != 1 {
		t.Fatalf("expected one classifier call, got %d", classifier.calls)
	}
	if len(f.violations.records) != 1 || f.violations.records[0].Severity != enums.ViolationSeverityAIFlagged {
		t.Fatalf("expected one ai_flagged violation, got %+v", f.violations.records)
	}
	if len(f.queue.items) != 1 || f.queue.items[0].Reason != "romance scam indicators" {
		t.Fatalf("unexpected review items: %+v", f.queue.items)
	}
}

func TestModerateSuspiciousEscalationAISafeStillRunsBlanketCheck(t *testing.T) {
	f := newFixture()
	classifier := &stubClassifier{verdict: aifilter.Verdict{Safe: true}}
	f.service.AttachClassifier(classifier)

	verdict, err := f.service.Moderate(context.Background(), 7, 8, "Let's meet at the hotel, bring cash")
	if err != nil {
		t.Fatalf("moderate: %v", err)
	}
	if !verdict.Approved {
		t.Fatalf("expected approval, got %+v", verdict)
	}
	if classifier.calls != 2 {
		t.Fatalf("expected escalation plus blanket classifier calls, got %d", classifier.calls)
	}
}

func TestModerateBlanketAIUnsafeQueuesCleanMessage(t *testing.T) {
	f := newFixture()
	classifier := &stubClassifier{verdict: aifilter.Verdict{Safe: false, Reason: "AI moderation unavailable"}}
	f.service.AttachClassifier(classifier)

	verdict, err := f.service.Moderate(context.Background(), 7, 8, "You seem like a lovely person")
	if err != nil {
		t.Fatalf("moderate: %v", err)
	}
	if verdict.Approved || !verdict.RequiresAdmin {
		t.Fatalf("ai outage must hold the message, got %+v", verdict)
	}
	if len(f.queue.items) != 1 {
		t.Fatalf("expected one review item, got %d", len(f.queue.items))
	}
	if len(f.messages.records) != 0 {
		t.Fatalf("held message must not be logged approved, got %+v", f.messages.records)
	}
}

func TestModerateValidation(t *testing.T) {
	f := newFixture()

	if _, err := f.service.Moderate(context.Background(), 7, 8, "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := f.service.Moderate(context.Background(), 0, 8, "hello"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing sender, got %v", err)
	}
}

func TestPreviewTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("नमस्ते", 40)
	p := preview(long)
	if !utf8.ValidString(p) {
		t.Fatalf("preview split a rune: %q", p)
	}
	if len(p) == 0 || len(p) > 100 {
		t.Fatalf("unexpected preview length: %d bytes", len(p))
	}

	short := "hello"
	if preview(short) != short {
		t.Fatalf("short text must pass through unchanged, got %q", preview(short))
	}
}
