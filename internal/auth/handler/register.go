package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	b := h.newBridge()

	sess, err := b.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.setSessionCookie(c, sess)

	h.log.Info("account registered",
		"user_id", sess.UserID,
		"session_id", sess.SessionID,
		"ip", c.ClientIP(),
	)

	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}
