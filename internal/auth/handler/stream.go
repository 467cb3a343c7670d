package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/BitsOfPraneet/The-Gates/internal/bridge"
	"github.com/BitsOfPraneet/The-Gates/internal/session"
)

type sessionEvent struct {
	State         string       `json:"state"`
	Authenticated bool         `json:"authenticated"`
	Initializing  bool         `json:"initializing"`
	UserID        string       `json:"userId,omitempty"`
	Profile       *profileView `json:"profile,omitempty"`
}

func toEvent(snap bridge.Snapshot) sessionEvent {
	ev := sessionEvent{
		State:         string(snap.State),
		Authenticated: snap.Authenticated(),
		Initializing:  snap.Initializing(),
	}
	if snap.Session != nil {
		ev.UserID = snap.Session.UserID
	}
	if snap.Profile != nil {
		v := toView(snap.Profile)
		ev.Profile = &v
	}
	return ev
}

// Stream holds a live bridge for one client and pushes session snapshots
// over SSE: the server-side counterpart of the web client's auth context.
// It works for unauthenticated visitors too; they just see the bootstrap
// resolve to unauthenticated.
func (h *Handler) Stream(c *gin.Context) {
	var sessionID string
	if cookie, err := c.Request.Cookie(session.CookieName); err == nil {
		sessionID = cookie.Value
	}

	b := h.newBridge()
	defer b.Close()

	b.Initialize(c.Request.Context(), sessionID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("session", toEvent(b.Snapshot()))
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case snap := <-b.Updates():
			c.SSEvent("session", toEvent(snap))
			c.Writer.Flush()
		case <-clientGone:
			return
		}
	}
}
