package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/scrapify/scrapify-backend/internal/eventbus"
)

const sseKeepAlive = 15 * time.Second

// DebugHandler exposes the in-process log buffer
type DebugHandler struct {
	bus *eventbus.Bus
}

func NewDebugHandler(bus *eventbus.Bus) *DebugHandler {
	return &DebugHandler{bus: bus}
}

// Logs returns the retained entries, oldest first
func (h *DebugHandler) Logs(c *fiber.Ctx) error {
	events := h.bus.Snapshot()
	return c.JSON(fiber.Map{
		"count":  len(events),
		"events": events,
	})
}

// ClearLogs empties the buffer
func (h *DebugHandler) ClearLogs(c *fiber.Ctx) error {
	h.bus.Clear()
	return c.JSON(fiber.Map{"success": true})
}

// StreamLogs pushes new entries as server-sent events until the client
// goes away or the bus is closed
func (h *DebugHandler) StreamLogs(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	events, cancel := h.bus.Subscribe()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		ticker := time.NewTicker(sseKeepAlive)
		defer ticker.Stop()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "id: %d\nevent: log\ndata: %s\n\n", ev.ID, data)
			case <-ticker.C:
				fmt.Fprint(w, ": keep-alive\n\n")
			}
			if err := w.Flush(); err != nil {
				// client disconnected
				return
			}
		}
	}))
	return nil
}
