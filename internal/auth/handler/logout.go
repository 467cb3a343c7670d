package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BitsOfPraneet/The-Gates/internal/session"
)

func (h *Handler) Logout(c *gin.Context) {
	cookie, err := c.Request.Cookie(session.CookieName)
	if err == nil && cookie.Value != "" {
		b := h.newBridge()

		if sess, err := h.sessions.Get(c.Request.Context(), cookie.Value); err == nil && sess != nil {
			b.Resume(sess)
		}

		// Local state is cleared regardless; a failed remote invalidation
		// is logged but the client still ends up signed out.
		if err := b.Logout(c.Request.Context()); err != nil {
			h.log.Error("session invalidation failed", "error", err, "session_id", cookie.Value)
		} else {
			h.log.Info("logout", "session_id", cookie.Value, "ip", c.ClientIP())
		}
	}

	session.ClearCookie(c.Writer, session.CookieOptions{
		Path:     "/",
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// Idempotent response
	c.Status(http.StatusNoContent)
}
