package handlers

import (
	"net/http"
	"time"

	"github.com/geocoder89/homeops/internal/live"
	"github.com/gin-gonic/gin"
)

type LiveHandler struct {
	broker    live.Broker
	heartbeat time.Duration
	onOpen    func(delta float64)
}

// NewLiveHandler streams broker events as Server-Sent Events. onOpen, when set, is called
// with +1/-1 as streams open and close.
func NewLiveHandler(broker live.Broker, onOpen func(delta float64)) *LiveHandler {
	if onOpen == nil {
		onOpen = func(float64) {}
	}
	return &LiveHandler{broker: broker, heartbeat: 25 * time.Second, onOpen: onOpen}
}

func (h *LiveHandler) Stream(ctx *gin.Context) {
	events, cancel, err := h.broker.Subscribe(ctx.Request.Context())
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}
	defer cancel()

	h.onOpen(1)
	defer h.onOpen(-1)

	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("X-Accel-Buffering", "no")
	ctx.Status(http.StatusOK)
	ctx.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	done := ctx.Request.Context().Done()
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			ctx.SSEvent(ev.Type, ev)
		case <-ticker.C:
			ctx.SSEvent("ping", gin.H{"at": time.Now().UTC()})
		}
		ctx.Writer.Flush()
	}
}
