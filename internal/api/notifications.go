package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-console/internal/notify"
)

const streamBuffer = 32

func (h *Handler) ListNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, currentSession(c).Queue.List())
}

func (h *Handler) DismissNotification(c *gin.Context) {
	currentSession(c).Queue.Dismiss(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// StreamNotifications sends the live entries, then every queue event, as server-sent
// events until the client disconnects or the session ends.
func (h *Handler) StreamNotifications(c *gin.Context) {
	queue := currentSession(c).Queue
	snapshot, events, cancel := queue.SubscribeWithSnapshot(streamBuffer)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	for _, n := range snapshot {
		c.SSEvent(string(notify.EventPushed), notify.Event{Type: notify.EventPushed, Notification: n})
	}
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(string(ev.Type), ev)
			c.Writer.Flush()
		}
	}
}
