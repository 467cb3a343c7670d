package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BitsOfPraneet/The-Gates/internal/bridge"
	"github.com/BitsOfPraneet/The-Gates/internal/identity"
)

// The Gates speaks in its own register. Reason codes stay stable; only the
// text shown to visitors is themed.
const msgDefault = "The dark forces are blocking your path... Try again."

var reasonMessages = map[identity.Reason]string{
	identity.ReasonUnknownAccount:  "This soul has not joined our realm yet...",
	identity.ReasonWrongCredential: "The spirits reject this incantation...",
	identity.ReasonEmailClaimed:    "This spirit vessel is already claimed by another...",
	identity.ReasonWeakPassword:    "Your incantation is too weak to protect your spirit!",
	identity.ReasonMalformedEmail:  "The spirit realm doesn't recognize this vessel...",
}

var reasonStatus = map[identity.Reason]int{
	identity.ReasonUnknownAccount:  http.StatusUnauthorized,
	identity.ReasonWrongCredential: http.StatusUnauthorized,
	identity.ReasonEmailClaimed:    http.StatusConflict,
	identity.ReasonWeakPassword:    http.StatusBadRequest,
	identity.ReasonMalformedEmail:  http.StatusBadRequest,
}

func validationMessage(ve *bridge.ValidationError) string {
	switch ve.Field {
	case "displayName":
		return "A name is required to join the coven!"
	case "email":
		return "A valid spirit vessel (email) is required!"
	case "password":
		if ve.Message == "password is required" {
			return "Your secret incantation (password) is needed!"
		}
		return "A more powerful incantation (password) is required! At least 6 characters."
	default:
		return msgDefault
	}
}

// respondError maps bridge/identity errors to a status code, a stable
// reason, and themed user-facing text. Raw service errors never leak.
func (h *Handler) respondError(c *gin.Context, err error) {
	var ve *bridge.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{
			"reason": "validation",
			"error":  validationMessage(ve),
		})
		return
	}

	reason := identity.ReasonOf(err)

	status, ok := reasonStatus[reason]
	if !ok {
		status = http.StatusInternalServerError
	}
	message, ok := reasonMessages[reason]
	if !ok {
		message = msgDefault
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "error", err)
	}

	c.JSON(status, gin.H{
		"reason": string(reason),
		"error":  message,
	})
}
