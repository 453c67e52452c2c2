package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"xmllibrary/internal/adapters/http/middleware"
	"xmllibrary/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const heartbeatInterval = 30 * time.Second

// EventHandler streams circulation events
type EventHandler struct {
	hub *services.EventHub
}

// NewEventHandler creates a new event handler
func NewEventHandler(hub *services.EventHub) *EventHandler {
	return &EventHandler{hub: hub}
}

// Stream sends circulation events as server-sent events
// @Summary Circulation event stream
// @Description Server-sent events for borrowing.created, borrowing.returned and borrowing.overdue
// @Tags Events
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {string} string "event stream"
// @Router /events [get]
func (h *EventHandler) Stream(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	clientID := uuid.NewString()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set(fiber.HeaderTransferEncoding, "chunked")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		client := h.hub.Subscribe(clientID, userID)
		defer h.hub.Unsubscribe(clientID)

		fmt.Fprintf(w, "event: connected\ndata: {\"client_id\":%q}\n\n", clientID)
		if err := w.Flush(); err != nil {
			return
		}

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case event, ok := <-client.Channel:
				if !ok {
					return
				}
				if err := writeEvent(w, event); err != nil {
					log.Printf("📡 Event client disconnected: %s", clientID)
					return
				}
			case <-heartbeat.C:
				fmt.Fprintf(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					log.Printf("📡 Event client disconnected: %s", clientID)
					return
				}
			}
		}
	})

	return nil
}

// writeEvent writes one SSE frame and flushes it
func writeEvent(w *bufio.Writer, event services.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("⚠️ Failed to encode event %s: %v", event.Name, err)
		return nil
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data)
	return w.Flush()
}
