package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	b := h.newBridge()

	sess, err := b.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.setSessionCookie(c, sess)

	h.log.Info("login succeeded",
		"user_id", sess.UserID,
		"session_id", sess.SessionID,
		"ip", c.ClientIP(),
	)

	c.JSON(http.StatusOK, gin.H{"status": "logged_in"})
}
