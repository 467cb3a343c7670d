package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BitsOfPraneet/The-Gates/internal/middleware"
	"github.com/BitsOfPraneet/The-Gates/internal/profile"
)

// profileView is the document shape the web client expects; field names
// match the original users/{uid} documents.
type profileView struct {
	UID            string `json:"uid"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Bio            string `json:"bio"`
	ProfilePicture string `json:"profilePicture"`
	Age            string `json:"age,omitempty"`
	Phone          string `json:"phone,omitempty"`
	DateOfBirth    string `json:"dateOfBirth,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

func toView(p *profile.Profile) profileView {
	return profileView{
		UID:            p.AccountID,
		Username:       p.DisplayName,
		Email:          p.Email,
		Bio:            p.Bio,
		ProfilePicture: p.Avatar,
		Age:            p.Age,
		Phone:          p.Phone,
		DateOfBirth:    p.DateOfBirth,
		CreatedAt:      p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	p, err := h.profiles.Get(c.Request.Context(), userID)
	if err == profile.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toView(p))
}

type updateProfileRequest struct {
	Username       *string `json:"username"`
	Bio            *string `json:"bio"`
	ProfilePicture *string `json:"profilePicture"`
	Age            *string `json:"age"`
	Phone          *string `json:"phone"`
	DateOfBirth    *string `json:"dateOfBirth"`
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	username := trimmed(req.Username)
	if username != nil && len(*username) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Your spirit name must be at least 3 characters!",
		})
		return
	}

	age := trimmed(req.Age)
	if age != nil && *age != "" {
		n, err := strconv.Atoi(*age)
		if err != nil || n < 1 || n > 150 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Please enter a valid age between 1 and 150!",
			})
			return
		}
	}

	b := h.newBridge()
	b.Resume(sess)

	err := b.UpdateProfile(c.Request.Context(), profile.Update{
		DisplayName: username,
		Bio:         trimmed(req.Bio),
		Avatar:      trimmed(req.ProfilePicture),
		Age:         age,
		Phone:       trimmed(req.Phone),
		DateOfBirth: trimmed(req.DateOfBirth),
	})
	if err != nil {
		h.log.Error("profile update failed", "error", err, "user_id", sess.UserID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "The dark forces rejected your changes...",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "updated",
		"message": "Your spirit profile has been updated!",
	})
}
