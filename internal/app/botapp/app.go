package botapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bandhanapp/backend/internal/config"
	"github.com/bandhanapp/backend/internal/infra/httpclient"
	"github.com/bandhanapp/backend/internal/infra/push"
	tginfra "github.com/bandhanapp/backend/internal/infra/telegram"
	"github.com/bandhanapp/backend/internal/infra/whatsapp"
	pgrepo "github.com/bandhanapp/backend/internal/repo/postgres"
	redrepo "github.com/bandhanapp/backend/internal/repo/redis"
	costsvc "github.com/bandhanapp/backend/internal/services/costs"
	reviewsvc "github.com/bandhanapp/backend/internal/services/review"
)

const pendingPageSize = 10

// App is the admin review bot: it surfaces held messages in a private admin
// chat and resolves them through the same review service as the HTTP API.
type App struct {
	cfg           config.Config
	logger        *zap.Logger
	postgres      *pgxpool.Pool
	redis         *goredis.Client
	bot           *tginfra.Bot
	reviewService *reviewsvc.Service
	costService   *costsvc.Service
	alertRepo     *redrepo.AlertRepo
	queueRepo     *redrepo.ReviewQueueRepo
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	userRepo := pgrepo.NewUserRepo(pool)
	messageLogRepo := pgrepo.NewMessageLogRepo(pool)
	reviewDecisionRepo := pgrepo.NewReviewDecisionRepo(pool)
	queueRepo := redrepo.NewReviewQueueRepo(redisClient)
	costRepo := redrepo.NewCostRepo(redisClient)
	failureRepo := redrepo.NewFailureRepo(redisClient)
	alertRepo := redrepo.NewAlertRepo(redisClient)

	sender := whatsapp.NewSender(httpclient.New(cfg.WhatsApp.SendTimeout), whatsapp.Config{
		BaseURL:       cfg.WhatsApp.APIBaseURL,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		AccessToken:   cfg.WhatsApp.AccessToken,
	})
	notifier := push.NewNotifier(httpclient.New(cfg.Notify.Timeout), cfg.Notify.BaseURL)

	reviewService := reviewsvc.NewService(queueRepo, reviewDecisionRepo, userRepo, sender, messageLogRepo, notifier, logger)
	costService := costsvc.NewService(costRepo, failureRepo, alertRepo, nil, costsvc.Config{
		PerMessageCost: cfg.WhatsApp.PerMessageCost,
		CostThreshold:  cfg.Alerts.CostThreshold,
	}, logger)

	var bot *tginfra.Bot
	if strings.TrimSpace(cfg.Bot.Token) != "" {
		bot, err = tginfra.NewBot(cfg.Bot.Token)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init telegram bot: %w", err)
		}
	} else {
		logger.Warn("BOT_TOKEN is empty, admin review bot disabled")
	}

	return &App{
		cfg:           cfg,
		logger:        logger,
		postgres:      pool,
		redis:         redisClient,
		bot:           bot,
		reviewService: reviewService,
		costService:   costService,
		alertRepo:     alertRepo,
		queueRepo:     queueRepo,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	if a.bot == nil {
		<-ctx.Done()
		return nil
	}

	a.logger.Info("admin review bot started")
	return a.bot.Listen(ctx, tginfra.Handlers{
		OnCommand:  a.handleCommand,
		OnCallback: a.handleCallback,
	})
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	if !a.allowedChat(update.ChatID) {
		return nil
	}

	switch update.Command {
	case "pending":
		a.sendPending(ctx, update.ChatID)
	case "costs":
		a.sendCosts(ctx, update.ChatID)
	case "alerts":
		a.sendAlerts(ctx, update.ChatID)
	case "start", "help":
		a.reply(ctx, update.ChatID, "Commands: /pending, /costs, /alerts")
	}
	return nil
}

func (a *App) handleCallback(ctx context.Context, update tginfra.CallbackUpdate) error {
	if !a.allowedChat(update.ChatID) {
		_ = a.bot.AnswerCallback(ctx, update.CallbackID, "not allowed")
		return nil
	}

	parts := strings.SplitN(update.Data, ":", 3)
	if len(parts) != 3 || parts[0] != "review" {
		_ = a.bot.AnswerCallback(ctx, update.CallbackID, "")
		return nil
	}
	decision, reviewID := parts[1], parts[2]

	resolution, err := a.reviewService.Resolve(ctx, reviewID, decision, "resolved via telegram", update.UserID)
	if err != nil {
		a.logger.Warn("bot review resolve failed",
			zap.String("review_id", reviewID),
			zap.Error(err),
		)
		_ = a.bot.AnswerCallback(ctx, update.CallbackID, resolveFailureText(err))
		return nil
	}

	_ = a.bot.AnswerCallback(ctx, update.CallbackID, "done")
	a.reply(ctx, update.ChatID, fmt.Sprintf("Review %s: %s", resolution.Item.ID, resolution.Decision))
	return nil
}

func (a *App) sendPending(ctx context.Context, chatID int64) {
	items, total, err := a.reviewService.Pending(ctx, 0, pendingPageSize)
	if err != nil {
		a.logger.Error("bot list pending", zap.Error(err))
		a.reply(ctx, chatID, "Failed to load pending reviews.")
		return
	}
	if total == 0 {
		a.reply(ctx, chatID, "No messages waiting for review.")
		return
	}

	a.reply(ctx, chatID, fmt.Sprintf("%d message(s) pending review:", total))
	for _, item := range items {
		text := fmt.Sprintf("From %d to %d\nReason: %s\n\n%s", item.SenderID, item.RecipientID, item.Reason, item.Message)
		if err := a.bot.SendReviewItem(ctx, chatID, text, item.ID); err != nil {
			a.logger.Error("bot send review item", zap.String("review_id", item.ID), zap.Error(err))
			return
		}
	}
}

func (a *App) sendCosts(ctx context.Context, chatID int64) {
	report, err := a.costService.MonthlyReport(ctx)
	if err != nil {
		a.logger.Error("bot cost report", zap.Error(err))
		a.reply(ctx, chatID, "Failed to load cost report.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "WhatsApp spend for %s: $%.2f\n", report.Month, report.Total)
	for _, e := range report.Entries {
		fmt.Fprintf(&sb, "user %d: $%.2f\n", e.UserID, e.Cost)
	}
	a.reply(ctx, chatID, sb.String())
}

func (a *App) sendAlerts(ctx context.Context, chatID int64) {
	alerts, err := a.alertRepo.List(ctx, pendingPageSize)
	if err != nil {
		a.logger.Error("bot list alerts", zap.Error(err))
		a.reply(ctx, chatID, "Failed to load alerts.")
		return
	}
	if len(alerts) == 0 {
		a.reply(ctx, chatID, "No recent alerts.")
		return
	}

	var sb strings.Builder
	for _, alert := range alerts {
		fmt.Fprintf(&sb, "[%s] %s\n%s\n\n", alert.Severity, alert.Subject, alert.Details)
	}
	a.reply(ctx, chatID, sb.String())
}

func (a *App) allowedChat(chatID int64) bool {
	return a.cfg.Bot.AdminChatID == 0 || chatID == a.cfg.Bot.AdminChatID
}

func (a *App) reply(ctx context.Context, chatID int64, text string) {
	if err := a.bot.SendText(ctx, chatID, text); err != nil {
		a.logger.Error("bot send text", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func resolveFailureText(err error) string {
	switch {
	case errors.Is(err, reviewsvc.ErrReviewNotFound):
		return "already resolved"
	case errors.Is(err, reviewsvc.ErrSendFailed):
		return "delivery failed, item kept in queue"
	default:
		return "failed"
	}
}
