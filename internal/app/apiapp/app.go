package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bandhanapp/backend/internal/config"
	"github.com/bandhanapp/backend/internal/infra/gemini"
	"github.com/bandhanapp/backend/internal/infra/httpclient"
	mailinfra "github.com/bandhanapp/backend/internal/infra/mailer"
	"github.com/bandhanapp/backend/internal/infra/push"
	"github.com/bandhanapp/backend/internal/infra/whatsapp"
	pgrepo "github.com/bandhanapp/backend/internal/repo/postgres"
	redrepo "github.com/bandhanapp/backend/internal/repo/redis"
	aisvc "github.com/bandhanapp/backend/internal/services/aifilter"
	authsvc "github.com/bandhanapp/backend/internal/services/auth"
	costsvc "github.com/bandhanapp/backend/internal/services/costs"
	entsvc "github.com/bandhanapp/backend/internal/services/entitlements"
	modsvc "github.com/bandhanapp/backend/internal/services/moderation"
	outsvc "github.com/bandhanapp/backend/internal/services/outbound"
	reviewsvc "github.com/bandhanapp/backend/internal/services/review"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	gemini     *gemini.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	userRepo := pgrepo.NewUserRepo(pool)
	violationRepo := pgrepo.NewViolationRepo(pool)
	messageLogRepo := pgrepo.NewMessageLogRepo(pool)
	reviewDecisionRepo := pgrepo.NewReviewDecisionRepo(pool)

	tierCacheRepo := redrepo.NewTierCacheRepo(redisClient)
	blockRepo := redrepo.NewBlockRepo(redisClient)
	reviewQueueRepo := redrepo.NewReviewQueueRepo(redisClient)
	costRepo := redrepo.NewCostRepo(redisClient)
	alertRepo := redrepo.NewAlertRepo(redisClient)
	failureRepo := redrepo.NewFailureRepo(redisClient)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)

	entitlementService := entsvc.NewService(userRepo, tierCacheRepo, entsvc.Config{
		TierCacheTTL: cfg.Moderation.TierCacheTTL,
	})

	moderationService := modsvc.NewService(blockRepo, violationRepo, messageLogRepo, reviewQueueRepo, alertRepo, modsvc.Config{
		BanThreshold:        cfg.Moderation.BanThreshold,
		SuspiciousThreshold: cfg.Moderation.SuspiciousThreshold,
		AutoBlockTTL:        cfg.Moderation.AutoBlockTTL,
	}, log)

	var geminiClient *gemini.Client
	if cfg.AI.APIKey != "" {
		if c, err := gemini.NewClient(ctx, cfg.AI.APIKey, cfg.AI.Model); err != nil {
			log.Warn("gemini init failed, suspicious messages go straight to manual review", zap.Error(err))
		} else {
			geminiClient = c
			moderationService.AttachClassifier(aisvc.NewService(geminiClient, aisvc.Config{
				Timeout: cfg.AI.Timeout,
			}, log))
		}
	} else {
		log.Warn("ai filter disabled, suspicious messages go straight to manual review")
	}

	sender := whatsapp.NewSender(httpclient.New(cfg.WhatsApp.SendTimeout), whatsapp.Config{
		BaseURL:       cfg.WhatsApp.APIBaseURL,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		AccessToken:   cfg.WhatsApp.AccessToken,
	})
	if !sender.Enabled() {
		log.Warn("whatsapp credentials missing, delivery disabled")
	}

	mailer := mailinfra.New(mailinfra.Config{
		Addr:     cfg.Alerts.SMTP.Addr,
		Username: cfg.Alerts.SMTP.Username,
		Password: cfg.Alerts.SMTP.Password,
		From:     cfg.Alerts.SMTP.From,
	})
	notifier := push.NewNotifier(httpclient.New(cfg.Notify.Timeout), cfg.Notify.BaseURL)

	costService := costsvc.NewService(costRepo, failureRepo, alertRepo, mailer, costsvc.Config{
		PerMessageCost:   cfg.WhatsApp.PerMessageCost,
		CostThreshold:    cfg.Alerts.CostThreshold,
		FailureThreshold: cfg.Alerts.FailureThreshold,
		FailureWindow:    cfg.Alerts.FailureWindow,
		AdminEmails:      cfg.Alerts.AdminEmails,
	}, log)

	reviewService := reviewsvc.NewService(reviewQueueRepo, reviewDecisionRepo, userRepo, sender, messageLogRepo, notifier, log)

	outboundService := outsvc.NewService(entitlementService, userRepo, moderationService, sender, messageLogRepo, costService, log)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		OutboundService: outboundService,
		ReviewService:   reviewService,
		CostService:     costService,
		ViolationRepo:   violationRepo,
		AlertRepo:       alertRepo,
		BlockRepo:       blockRepo,
		JWTManager:      jwtManager,
		Logger:          log,
		Config:          cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		gemini:     geminiClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	if a.gemini != nil {
		if err := a.gemini.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
