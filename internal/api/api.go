package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/celerix-dev/celerix-console/internal/catalog"
	"github.com/celerix-dev/celerix-console/internal/ledger"
	"github.com/celerix-dev/celerix-console/internal/session"
	"github.com/celerix-dev/celerix-console/internal/status"
)

const sessionKey = "session"

type Handler struct {
	Sessions *session.Manager
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Routes registers every endpoint on r.
func (h *Handler) Routes(r *gin.Engine) {
	if h.Logger == nil {
		h.Logger = slog.Default()
	}

	r.GET("/healthz", h.Health)
	if h.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})))
	}

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/login", h.Login)
		apiGroup.GET("/statuses", h.Statuses)
	}

	authed := r.Group("/api", h.RequireSession)
	{
		authed.POST("/logout", h.Logout)

		authed.GET("/orders", h.ListOrders)
		authed.PUT("/orders/:id/status", h.SetOrderStatus)

		authed.GET("/tracking", h.ListTracking)
		authed.POST("/tracking", h.CreateTracking)
		authed.PUT("/tracking", h.UpdateTracking)
		authed.DELETE("/tracking", h.DeleteTracking)

		authed.GET("/notifications", h.ListNotifications)
		authed.DELETE("/notifications/:id", h.DismissNotification)
		authed.GET("/notifications/stream", h.StreamNotifications)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "API route not found"})
	})
}

// CORS allows the browser console to call the API from another origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to ?token= for
// EventSource clients, which cannot set headers.
func bearerToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.Query("token")
}

// RequireSession rejects requests without a valid session token.
func (h *Handler) RequireSession(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	sess, err := h.Sessions.Authenticate(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Set(sessionKey, sess)
	c.Next()
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.Sessions.Active()})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, sess, err := h.Sessions.Login(req.Username, req.Password)
	if errors.Is(err, session.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"sessionId": sess.ID,
		"expiresAt": sess.ExpiresAt,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.Sessions.Logout(bearerToken(c)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) Statuses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"orders":   catalog.OrderStatuses(),
		"tracking": catalog.TrackingStatuses(),
	})
}

func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := currentSession(c).Status.ListOrders()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// statusChange is the body of both status update endpoints.
type statusChange struct {
	ID          string `json:"id"`
	Status      string `json:"status" binding:"required"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Details     string `json:"details"`
}

func (s statusChange) options() []ledger.EntryOption {
	return []ledger.EntryOption{
		ledger.WithDescription(s.Description),
		ledger.WithLocation(s.Location),
		ledger.WithDetails(s.Details),
	}
}

func (h *Handler) SetOrderStatus(c *gin.Context) {
	var req statusChange
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess := currentSession(c)
	id := c.Param("id")

	ok, err := sess.Status.UpdateOrderStatus(id, catalog.OrderStatus(req.Status), sess.Username, req.options()...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	order, _, err := sess.Status.GetOrder(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) ListTracking(c *gin.Context) {
	filter := status.TrackingFilter{
		Code:        c.Query("code"),
		OrderNumber: c.Query("order"),
		Status:      catalog.TrackingStatus(c.Query("status")),
		Query:       c.Query("q"),
	}
	records, err := currentSession(c).Status.ListTracking(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) CreateTracking(c *gin.Context) {
	var req status.NewTracking
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess := currentSession(c)

	rec, err := sess.Status.CreateTracking(req, sess.Username)
	if errors.Is(err, status.ErrInvalidTracking) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) UpdateTracking(c *gin.Context) {
	var req statusChange
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	sess := currentSession(c)

	ok, err := sess.Status.UpdateTrackingStatus(req.ID, catalog.TrackingStatus(req.Status), sess.Username, req.options()...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "tracking record not found"})
		return
	}
	rec, _, err := sess.Status.GetTracking(req.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) DeleteTracking(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	ok, err := currentSession(c).Status.DeleteTracking(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "tracking record not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
