package server

import (
	"marketplace-gateway/internal/config"
	"marketplace-gateway/internal/handler"
	custommw "marketplace-gateway/internal/middleware"
	"marketplace-gateway/internal/repository"
	"marketplace-gateway/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo            *echo.Echo
	checkoutHandler *handler.CheckoutHandler
	apiKeyHandler   *handler.APIKeyHandler
	webhookHandler  *handler.WebhookHandler

	keyService service.APIKeyService
	usageRepo  repository.UsageLogRepository
	portalCfg  config.Portal
}

func NewServer(
	cfg *config.Config,
	checkoutHandler *handler.CheckoutHandler,
	apiKeyHandler *handler.APIKeyHandler,
	webhookHandler *handler.WebhookHandler,
	keyService service.APIKeyService,
	usageRepo repository.UsageLogRepository,
) *Server {
	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:            e,
		checkoutHandler: checkoutHandler,
		apiKeyHandler:   apiKeyHandler,
		webhookHandler:  webhookHandler,
		keyService:      keyService,
		usageRepo:       usageRepo,
		portalCfg:       cfg.Portal,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api/v1")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// -------- integration surface (API-key admitted) --------
	admitted := api.Group("", custommw.Admission(s.keyService, s.usageRepo, false))
	admitted.GET("/fees", s.checkoutHandler.FeeComparison, custommw.RequirePermissions("read"))
	admitted.GET("/providers", s.checkoutHandler.ProviderStatuses, custommw.RequirePermissions("read"))

	// checkout and money movement require the secret
	secured := api.Group("/checkout", custommw.Admission(s.keyService, s.usageRepo, true), custommw.RequirePermissions("write"))
	secured.POST("", s.checkoutHandler.CreatePayment)
	secured.POST("/:intentID/capture", s.checkoutHandler.Capture)
	secured.POST("/:intentID/cancel", s.checkoutHandler.Cancel)
	secured.POST("/:intentID/refund", s.checkoutHandler.Refund)
	secured.GET("/:intentID", s.checkoutHandler.Status)

	events := api.Group("/events", custommw.Admission(s.keyService, s.usageRepo, true), custommw.RequirePermissions("webhook"))
	events.POST("/test", s.webhookHandler.EmitTestEvent)

	routing := api.Group("/routing", custommw.Admission(s.keyService, s.usageRepo, true), custommw.RequirePermissions("admin"))
	routing.GET("/config", s.checkoutHandler.GetRoutingConfig)
	routing.PUT("/config", s.checkoutHandler.UpdateRoutingConfig)
	routing.GET("/stats", s.checkoutHandler.RoutingStats)

	// -------- provider callbacks (disputes) --------
	s.echo.POST("/webhooks/providers/:provider", s.checkoutHandler.ProviderDispute)

	// -------- developer portal (dashboard JWT) --------
	portal := s.echo.Group("/portal", custommw.PortalAuth(s.portalCfg.JWTSecret))
	portal.POST("/keys", s.apiKeyHandler.Create)
	portal.GET("/keys", s.apiKeyHandler.List)
	portal.POST("/keys/:publicID/rotate", s.apiKeyHandler.Rotate)
	portal.DELETE("/keys/:publicID", s.apiKeyHandler.Deactivate)

	portal.POST("/keys/:publicID/webhooks", s.webhookHandler.Register)
	portal.GET("/keys/:publicID/webhooks", s.webhookHandler.List)
	portal.DELETE("/keys/:publicID/webhooks/:webhookID", s.webhookHandler.Deactivate)
	portal.POST("/keys/:publicID/webhooks/:webhookID/reactivate", s.webhookHandler.Reactivate)
	portal.GET("/keys/:publicID/webhooks/:webhookID/deliveries", s.webhookHandler.Deliveries)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
