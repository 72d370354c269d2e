package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bandhanapp/backend/internal/config"
	pgrepo "github.com/bandhanapp/backend/internal/repo/postgres"
	redrepo "github.com/bandhanapp/backend/internal/repo/redis"
	authsvc "github.com/bandhanapp/backend/internal/services/auth"
	costsvc "github.com/bandhanapp/backend/internal/services/costs"
	outsvc "github.com/bandhanapp/backend/internal/services/outbound"
	reviewsvc "github.com/bandhanapp/backend/internal/services/review"
	"github.com/bandhanapp/backend/internal/transport/http/handlers"
)

type Dependencies struct {
	OutboundService *outsvc.Service
	ReviewService   *reviewsvc.Service
	CostService     *costsvc.Service
	ViolationRepo   *pgrepo.ViolationRepo
	AlertRepo       *redrepo.AlertRepo
	BlockRepo       *redrepo.BlockRepo
	JWTManager      *authsvc.JWTManager
	Logger          *zap.Logger
	Config          config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	whatsappHandler := handlers.NewWhatsAppHandler(deps.OutboundService)
	adminHandler := handlers.NewAdminWhatsAppHandler(
		deps.ReviewService,
		deps.CostService,
		deps.ViolationRepo,
		deps.AlertRepo,
		deps.BlockRepo,
		deps.Config.Moderation.ManualBlockTTL,
	)

	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)
	adminRoleMW := RequireRole(authsvc.RoleAdmin)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/whatsapp", func(r chi.Router) {
		r.With(authMW).Post("/send", whatsappHandler.Send)

		r.Route("/admin", func(r chi.Router) {
			r.Use(authMW, adminRoleMW)
			r.Get("/pending-reviews", adminHandler.PendingReviews)
			r.Post("/review", adminHandler.Review)
			r.Get("/violations", adminHandler.Violations)
			r.Get("/costs", adminHandler.Costs)
			r.Get("/alerts", adminHandler.Alerts)
			r.Post("/block-user/{id}", adminHandler.BlockUser)
			r.Delete("/unblock-user/{id}", adminHandler.UnblockUser)
		})
	})
}
