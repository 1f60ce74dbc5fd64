package http

import (
	nethttp "net/http"

	"github.com/gin-gonic/gin"

	"portfolio-agent/internal/bootstrap"
	"portfolio-agent/internal/transport/http/handler"
	"portfolio-agent/internal/transport/http/middleware"
)

// maxBodyBytes bounds request bodies; conversations are small.
const maxBodyBytes = 1 << 20

func NewRouter(app *bootstrap.App) *gin.Engine {
	if app.Config.App.GinMode != "" {
		gin.SetMode(app.Config.App.GinMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(app.Logger),
		middleware.CORS(app.Config.App.CORSAllowOrigins),
		limitBody(maxBodyBytes),
	)

	healthHandler := handler.NewHealthHandler(app)
	agentHandler := handler.NewAgentHandler(app.Agent)
	auditHandler := handler.NewAuditHandler(app.Audit)
	feedHandler := handler.NewFeedPageHandler(app.Audit, app.Config.Feed.AgentURL, app.Config.Feed.Suggestions)

	router.GET("/healthz", healthHandler.Check)
	router.GET("/questions-and-answers", feedHandler.Render)

	api := router.Group("/api")
	api.POST("/agent", agentHandler.Ask)
	api.POST("/audit-feed", auditHandler.Append)
	api.GET("/audit-feed", auditHandler.Feed)

	if app.AdminAuth.Enabled() {
		authHandler := handler.NewAuthHandler(app.AdminAuth)
		adminHandler := handler.NewAdminHandler(app.Agent, app.Audit)

		admin := router.Group("/api/v1/admin")
		admin.POST("/login", authHandler.Login)

		secured := admin.Group("")
		secured.Use(middleware.AuthJWT(app.AdminAuth.JWTSecret()))
		secured.GET("/me", authHandler.Me)
		secured.GET("/corpus", adminHandler.Corpus)
		secured.POST("/corpus/reload", adminHandler.ReloadCorpus)
		secured.GET("/audit", adminHandler.Audit)
	}

	return router
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = nethttp.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
