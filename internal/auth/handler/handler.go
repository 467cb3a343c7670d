package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BitsOfPraneet/The-Gates/internal/bridge"
	"github.com/BitsOfPraneet/The-Gates/internal/identity"
	"github.com/BitsOfPraneet/The-Gates/internal/profile"
	"github.com/BitsOfPraneet/The-Gates/internal/session"
)

type Handler struct {
	identity identity.Service
	sessions session.Store
	profiles profile.Store

	bootstrapTimeout time.Duration
	sessionTTL       time.Duration
	log              *slog.Logger
}

type Options struct {
	BootstrapTimeout time.Duration
	SessionTTL       time.Duration
	Logger           *slog.Logger
}

func NewHandler(
	identitySvc identity.Service,
	sessions session.Store,
	profiles profile.Store,
	opts Options,
) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		identity:         identitySvc,
		sessions:         sessions,
		profiles:         profiles,
		bootstrapTimeout: opts.BootstrapTimeout,
		sessionTTL:       opts.SessionTTL,
		log:              opts.Logger,
	}
}

// newBridge builds a bridge for one request or stream. Bridges that never
// call Initialize stay passive: no listeners, no goroutines.
func (h *Handler) newBridge() *bridge.Bridge {
	return bridge.New(h.identity, h.sessions, h.profiles, bridge.Options{
		BootstrapTimeout: h.bootstrapTimeout,
		SessionTTL:       h.sessionTTL,
		Logger:           h.log,
	})
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)
	r.POST("/auth/reset", h.RequestReset)
	r.POST("/auth/reset/confirm", h.ConfirmReset)
	r.GET("/api/session/stream", h.Stream)
}

func (h *Handler) setSessionCookie(c *gin.Context, sess *session.Session) {
	session.SetCookie(c.Writer, sess.SessionID, sess.ExpiresAt, session.CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
