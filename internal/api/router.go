// internal/api/router.go
package api

import (
	"context"
	"time"

	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatcher answers one chat message.
type Dispatcher interface {
	Dispatch(ctx context.Context, message, threadID string) *models.ResponseEnvelope
}

// HistoryReader returns the recent messages of a thread, oldest first.
type HistoryReader interface {
	History(ctx context.Context, threadID string, limit int) ([]models.ChatMessage, error)
}

// Check is one readiness probe, for example a database ping.
type Check func(ctx context.Context) error

type Config struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	Version        string
}

// NewRouter builds the gin engine. History and checks may be nil.
func NewRouter(cfg Config, dispatcher Dispatcher, history HistoryReader, checks map[string]Check, log logger.Logger) *gin.Engine {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	r := gin.New()
	r.Use(RequestID())
	r.Use(Recovery(log))
	r.Use(RequestLogger(log))

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	h := &Handler{
		Dispatcher:     dispatcher,
		History:        history,
		Checks:         checks,
		Validator:      validator.New(),
		Logger:         log.With(map[string]interface{}{"component": "api"}),
		RequestTimeout: cfg.RequestTimeout,
		Version:        cfg.Version,
	}

	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/chat", h.Chat)
		api.GET("/threads/:id/history", h.ThreadHistory)
	}

	return r
}
