package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/itsnaseer/slackbrix/internal/http/handler"
	"github.com/itsnaseer/slackbrix/internal/http/handler/webhook"
	"github.com/itsnaseer/slackbrix/internal/http/middleware"
	"github.com/itsnaseer/slackbrix/internal/queue"
	"github.com/itsnaseer/slackbrix/internal/reactor"
	"github.com/itsnaseer/slackbrix/internal/service"
)

type RouterConfig struct {
	PublicBaseURL string
	InstallPath   string
	RedirectPath  string
	SigningSecret string
	TriggerText   string
	AdminAPIKey   string
	IsProduction  bool
}

// Deps are the collaborators the routes are built from.
type Deps struct {
	Services *service.Services
	Deduper  queue.Deduper
	Reactor  webhook.EventReactor
	Clients  reactor.ClientFactory
	Checks   []handler.Check
}

func SetupRoutes(router *gin.Engine, deps Deps, cfg RouterConfig) {
	router.SetHTMLTemplate(handler.Templates())

	health := handler.NewHealthHandler(deps.Checks...)
	router.GET("/health", health.Live)
	router.GET("/health/ready", health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/", handler.NewLandingHandler(cfg.InstallPath, cfg.TriggerText).Index)

	oauthHandler := handler.NewOAuthHandler(deps.Services.OAuth(), handler.OAuthConfig{
		PublicBaseURL: cfg.PublicBaseURL,
		InstallPath:   cfg.InstallPath,
		RedirectPath:  cfg.RedirectPath,
		IsProduction:  cfg.IsProduction,
	})
	OAuthRouter(router, oauthHandler, cfg.InstallPath, cfg.RedirectPath)

	webhookHandler := webhook.NewSlackWebhookHandler(
		cfg.SigningSecret,
		deps.Services.Authorizer(),
		deps.Services.Installations(),
		deps.Deduper,
		deps.Reactor,
		deps.Clients,
	)
	SlackRouter(router.Group("/slack"), webhookHandler)

	if cfg.AdminAPIKey != "" {
		v1 := router.Group("/api/v1", middleware.RequireAdminKey(cfg.AdminAPIKey))
		InstallationRouter(v1.Group("/installations"), handler.NewInstallationHandler(deps.Services.Installations()))
	}
}
