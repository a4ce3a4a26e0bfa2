package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/krishkalaria12/echo-interview/internal/http/handlers"
	httpMW "github.com/krishkalaria12/echo-interview/internal/http/middleware"
	"github.com/krishkalaria12/echo-interview/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	WebhookHandler   *httpH.WebhookHandler
	InterviewHandler *httpH.InterviewHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("echo-interview"))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.WebhookHandler != nil {
			api.POST("/webhook", cfg.WebhookHandler.Receive)
		}

		if cfg.InterviewHandler != nil {
			api.POST("/interviews/:id/enrich", cfg.InterviewHandler.Enrich)
		}
	}

	return r
}
