package httpapi

import (
	"errors"
	"net/http"
	"time"

	"pbx-notifier/internal/auth"
	"pbx-notifier/internal/pbx"
	"pbx-notifier/internal/period"
	"pbx-notifier/internal/pipeline"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth     *auth.Manager
	Pipeline *pipeline.Pipeline
}

// --- Auth ---

type loginRequest struct {
	Operator string `json:"operator"`
}

// Login issues an access token.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Operator == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "operator required"})
		return
	}
	tok, err := h.Auth.Issue(time.Now(), req.Operator)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": tok})
}

// --- Commands ---

// TriggerCheck runs one delivery cycle on demand.
func (h Handlers) TriggerCheck(c *gin.Context) {
	if h.Pipeline == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pipeline not configured"})
		return
	}
	res, err := h.Pipeline.RunDeliveryCycle(c.Request.Context())
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a delivery cycle is already running"})
		return
	case errors.Is(err, pbx.ErrSourceUnavailable):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "could not reach call source"})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"found":      res.Found,
		"delivered":  res.Delivered,
		"with_audio": res.WithAudio,
		"fallbacks":  res.Fallbacks,
	})
}

// ListCalls returns the calls for a named period. An empty period is a
// 200 with an empty list; an unreachable source is an error, never an
// empty list.
func (h Handlers) ListCalls(c *gin.Context) {
	if h.Pipeline == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pipeline not configured"})
		return
	}
	p, err := period.Parse(c.Param("period"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records, err := h.Pipeline.RunRangeQuery(c.Request.Context(), p)
	if err != nil {
		if errors.Is(err, pbx.ErrSourceUnavailable) {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "could not reach call source"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": p, "count": len(records), "calls": records})
}

// Stats returns aggregate counts for a named period.
func (h Handlers) Stats(c *gin.Context) {
	if h.Pipeline == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pipeline not configured"})
		return
	}
	p, err := period.Parse(c.Param("period"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sum, err := h.Pipeline.RunStats(c.Request.Context(), p)
	if err != nil {
		if errors.Is(err, pbx.ErrSourceUnavailable) {
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "could not reach call source"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": p, "stats": sum})
}
