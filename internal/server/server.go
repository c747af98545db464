// Package server exposes the application over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ipscope/internal/ai"
	"ipscope/internal/app"
	"ipscope/internal/credential"
	"ipscope/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// Credentials is the credential lifecycle used by the API.
type Credentials interface {
	Resolve(ctx context.Context) (string, credential.Status)
	Save(ctx context.Context, key string) error
	Clear() error
	FromEnv() bool
}

type Handler struct {
	App      *app.App
	Creds    Credentials
	Gatherer prometheus.Gatherer
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger())

	api := r.Group("/api")
	api.GET("/health", h.Health)
	api.POST("/analyze", h.Analyze)
	api.GET("/session", h.GetSession)
	api.GET("/history", h.GetHistory)
	api.DELETE("/history", h.ClearHistory)
	api.GET("/credential", h.GetCredential)
	api.PUT("/credential", h.SaveCredential)
	api.DELETE("/credential", h.ClearCredential)
	api.POST("/critique", h.Critique)
	api.POST("/postcard", h.Postcard)

	if h.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Log.Infow("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", c.GetString("request_id"),
		)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Analyze(c *gin.Context) {
	var input struct {
		IP string `json:"ip"`
	}
	// An empty body analyzes the caller's own connection.
	if c.Request.Body != nil {
		if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	entry, err := h.App.Analyze(c.Request.Context(), input.IP)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) GetSession(c *gin.Context) {
	entry, ok := h.App.Session.Current()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis in this session"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) GetHistory(c *gin.Context) {
	c.JSON(http.StatusOK, h.App.History.List())
}

func (h *Handler) ClearHistory(c *gin.Context) {
	if err := h.App.History.Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) GetCredential(c *gin.Context) {
	_, status := h.Creds.Resolve(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *Handler) SaveCredential(c *gin.Context) {
	var input struct {
		Key string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Creds.Save(c.Request.Context(), input.Key); err != nil {
		if errors.Is(err, ai.ErrInvalidCredential) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "status": credential.StatusInvalid})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := credential.StatusValid
	if h.Creds.FromEnv() {
		status = credential.StatusFromEnv
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *Handler) ClearCredential(c *gin.Context) {
	if err := h.Creds.Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	_, status := h.Creds.Resolve(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *Handler) Critique(c *gin.Context) {
	res, err := h.App.Critique(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Postcard(c *gin.Context) {
	img, err := h.App.Postcard(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": img.DataURI()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrNoTrace), errors.Is(err, app.ErrNoCountry):
		return http.StatusConflict
	case errors.Is(err, app.ErrCredentialRequired), errors.Is(err, ai.ErrInvalidCredential):
		return http.StatusUnauthorized
	}
	return http.StatusBadGateway
}
