package main

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"pbx-notifier/internal/auth"
	"pbx-notifier/internal/config"
	"pbx-notifier/internal/httpapi"
	"pbx-notifier/internal/pbx"
	"pbx-notifier/internal/pipeline"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, cfg config.Config, pipe *pipeline.Pipeline, authManager *auth.Manager, log *slog.Logger) {
	h := httpapi.Handlers{
		Auth:     authManager,
		Pipeline: pipe,
	}

	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/v1/auth/login", h.Login)

	// PBX call-finished push. The payload only tells us something
	// happened; the cycle itself re-reads history so push and poll
	// stay on one code path.
	r.POST("/webhooks/pbx/call", func(c *gin.Context) {
		if cfg.PBX.WebhookSecret != "" {
			got := c.Query("secret")
			if subtle.ConstantTimeCompare([]byte(got), []byte(cfg.PBX.WebhookSecret)) != 1 {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "bad secret"})
				return
			}
		}

		ev, err := pbx.ParsePushEvent(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad push payload"})
			return
		}
		log.Info("pbx push received", "call_id", ev.CallID)

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			runCycle(ctx, log, pipe)
		}()

		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	})

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(authManager))
	{
		v1.POST("/commands/check", h.TriggerCheck)
		v1.GET("/calls/:period", h.ListCalls)
		v1.GET("/stats/:period", h.Stats)
	}
}
