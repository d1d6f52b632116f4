package api

import (
	"io"

	"github.com/gin-gonic/gin"
)

// streamSnapshots writes each snapshot as a server-sent event until the channel
// closes, render marks a snapshot final or fails, or the client disconnects.
// Callers own the subscription and cancel it when this returns.
func streamSnapshots[T any](c *gin.Context, event string, snapshots <-chan T, render func(T) (payload any, final bool, err error)) {
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snap, ok := <-snapshots:
			if !ok {
				return false
			}
			payload, final, err := render(snap)
			if err != nil {
				loggerFrom(c).WarnContext(ctx, "stream ended", "event", event, "error", err)
				c.SSEvent("error", gin.H{"error": streamErrorMessage(err)})
				return false
			}
			c.SSEvent(event, payload)
			return !final
		}
	})
}

func streamErrorMessage(err error) string {
	switch {
	case isForbidden(err):
		return msgForbidden
	default:
		return msgSomethingWentWrong
	}
}
