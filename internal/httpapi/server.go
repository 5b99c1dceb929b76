package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	internalcommands "github.com/goliatone/go-live-notifications/internal/commands"
	"github.com/goliatone/go-live-notifications/internal/inbox"
	"github.com/goliatone/go-live-notifications/internal/toast"
	"github.com/goliatone/go-live-notifications/pkg/commands"
	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/store"
)

const shutdownTimeout = 5 * time.Second

var errCommandsRequired = errors.New("httpapi: command registry is required")

// InboxReader lists the viewer's mirrored notifications.
type InboxReader interface {
	List(ctx context.Context, userID string, opts store.ListOptions, filters inbox.ListFilters) (store.ListResult[domain.InboxItem], error)
	BadgeCount(ctx context.Context, userID string) (int, error)
}

// ToastLister returns the visible toast stack.
type ToastLister interface {
	Visible() []domain.Toast
}

// StatusFunc reports the viewer the engine is subscribed for.
type StatusFunc func() (domain.ViewerIdentity, bool)

// Dependencies wire the HTTP surface.
type Dependencies struct {
	Commands *commands.Registry
	Inbox    InboxReader
	Toasts   ToastLister
	Realtime http.Handler
	Status   StatusFunc
	Gatherer prometheus.Gatherer
	Logger   logger.Logger
}

// Server exposes the command catalog, inbox queries, metrics and the realtime
// WebSocket over HTTP.
type Server struct {
	router *gin.Engine
	deps   Dependencies
	logger logger.Logger
}

// New builds the router.
func New(deps Dependencies) (*Server, error) {
	if deps.Commands == nil {
		return nil, errCommandsRequired
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		router: gin.New(),
		deps:   deps,
		logger: logger.OrNop(deps.Logger),
	}
	s.router.Use(gin.Recovery(), s.logRequests())
	s.routes()
	return s, nil
}

// Handler returns the underlying router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("httpapi: listening", logger.F("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) routes() {
	r := s.router
	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	if s.deps.Realtime != nil {
		r.GET("/ws", gin.WrapH(s.deps.Realtime))
	}

	r.POST("/events", s.ingestEvent)
	r.POST("/gesture", s.unlockAudio)
	r.POST("/identity/refresh", s.refreshIdentity)
	r.GET("/toasts", s.listToasts)
	r.POST("/toasts/:id/activate", s.activateToast)

	r.GET("/inbox", s.listInbox)
	r.POST("/inbox/read", s.markRead)
	r.POST("/inbox/:id/dismiss", s.dismiss)
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("httpapi: request",
			logger.F("method", c.Request.Method),
			logger.F("path", c.FullPath()),
			logger.F("status", c.Writer.Status()),
			logger.F("duration", time.Since(start)),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.deps.Status != nil {
		viewer, active := s.deps.Status()
		body["viewer_id"] = viewer.ViewerID
		body["subscribed"] = active
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) ingestEvent(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}
	err := s.deps.Commands.IngestEvent.Execute(c.Request.Context(), commands.IngestEvent{Payload: payload})
	s.respond(c, http.StatusAccepted, err)
}

func (s *Server) unlockAudio(c *gin.Context) {
	var req commands.UnlockAudio
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}
	err := s.deps.Commands.UnlockAudio.Execute(c.Request.Context(), req)
	s.respond(c, http.StatusNoContent, err)
}

func (s *Server) refreshIdentity(c *gin.Context) {
	err := s.deps.Commands.RefreshIdentity.Execute(c.Request.Context(), commands.RefreshIdentity{})
	if err == nil && s.deps.Status != nil {
		viewer, active := s.deps.Status()
		c.JSON(http.StatusOK, gin.H{"viewer_id": viewer.ViewerID, "subscribed": active})
		return
	}
	s.respond(c, http.StatusNoContent, err)
}

func (s *Server) listToasts(c *gin.Context) {
	toasts := []domain.Toast{}
	if s.deps.Toasts != nil {
		toasts = append(toasts, s.deps.Toasts.Visible()...)
	}
	c.JSON(http.StatusOK, gin.H{"toasts": toasts, "count": len(toasts)})
}

func (s *Server) activateToast(c *gin.Context) {
	err := s.deps.Commands.ActivateToast.Execute(c.Request.Context(), commands.ActivateToast{ID: c.Param("id")})
	s.respond(c, http.StatusNoContent, err)
}

func (s *Server) listInbox(c *gin.Context) {
	if s.deps.Inbox == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "inbox disabled"})
		return
	}
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	opts := store.ListOptions{
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	filters := inbox.ListFilters{
		UnreadOnly:       c.Query("unread") == "true",
		IncludeDismissed: c.Query("dismissed") == "true",
	}
	ctx := c.Request.Context()
	res, err := s.deps.Inbox.List(ctx, userID, opts, filters)
	if err != nil {
		s.respond(c, http.StatusOK, err)
		return
	}
	unread, err := s.deps.Inbox.BadgeCount(ctx, userID)
	if err != nil {
		s.respond(c, http.StatusOK, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res.Items, "total": res.Total, "unread": unread})
}

func (s *Server) markRead(c *gin.Context) {
	var req commands.InboxMarkRead
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}
	err := s.deps.Commands.InboxMarkRead.Execute(c.Request.Context(), req)
	s.respond(c, http.StatusNoContent, err)
}

func (s *Server) dismiss(c *gin.Context) {
	req := commands.InboxDismiss{ID: c.Param("id"), UserID: c.Query("user_id")}
	err := s.deps.Commands.InboxDismiss.Execute(c.Request.Context(), req)
	s.respond(c, http.StatusNoContent, err)
}

func (s *Server) respond(c *gin.Context, success int, err error) {
	if err == nil {
		c.Status(success)
		return
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("httpapi: request failed",
			logger.F("path", c.FullPath()),
			logger.F("error", err),
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, internalcommands.ErrUnknownGesture),
		errors.Is(err, internalcommands.ErrEmptyPayload),
		errors.Is(err, internalcommands.ErrToastRequired),
		errors.Is(err, internalcommands.ErrInvalidInboxID):
		return http.StatusBadRequest
	case errors.Is(err, toast.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil || value < 0 {
		return def
	}
	return value
}
