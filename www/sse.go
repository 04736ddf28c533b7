package www

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"floorpilot/engine"
)

type SSEEvent struct {
	Event string
	Data  string
}

type EventHub struct {
	mu        sync.RWMutex
	clients   map[chan SSEEvent]struct{}
	broadcast chan SSEEvent
	stopChan  chan struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:   make(map[chan SSEEvent]struct{}),
		broadcast: make(chan SSEEvent, 256),
		stopChan:  make(chan struct{}),
	}
}

func (h *EventHub) Start() {
	go h.run()
}

func (h *EventHub) Stop() {
	select {
	case h.stopChan <- struct{}{}:
	default:
	}
}

func (h *EventHub) run() {
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case evt := <-h.broadcast:
			h.fanout(evt)
		case <-keepalive.C:
			h.fanout(SSEEvent{Event: "keepalive", Data: "ping"})
		}
	}
}

// fanout delivers to every client, dropping for any whose buffer is
// full so one stalled connection cannot block the rest.
func (h *EventHub) fanout(evt SSEEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (h *EventHub) Broadcast(event, data string) {
	select {
	case h.broadcast <- SSEEvent{Event: event, Data: data}:
	default:
	}
}

func (h *EventHub) AddClient() chan SSEEvent {
	ch := make(chan SSEEvent, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) RemoveClient(ch chan SSEEvent) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SetupEngineListeners wires engine events to SSE broadcasts.
func (h *EventHub) SetupEngineListeners(eng *engine.Engine) {
	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.StatusChangedEvent)
		h.Broadcast("status", fmt.Sprintf(`{"old":"%s","new":"%s"}`, ev.OldStatus, ev.NewStatus))
	}, engine.EventStatusChanged)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.FloorEvent)
		h.Broadcast("floor-update", fmt.Sprintf(`{"type":"switch_started","floor_id":"%s","name":"%s"}`, ev.FloorID, ev.Name))
	}, engine.EventFloorSwitchStarted)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.FloorEvent)
		h.Broadcast("floor-update", fmt.Sprintf(`{"type":"switch_completed","floor_id":"%s","name":"%s"}`, ev.FloorID, ev.Name))
	}, engine.EventFloorSwitchCompleted)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.FloorEvent)
		h.Broadcast("floor-update", fmt.Sprintf(`{"type":"switch_failed","floor_id":"%s","reason":"%s"}`, ev.FloorID, ev.Reason))
	}, engine.EventFloorSwitchFailed)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.FloorEvent)
		h.Broadcast("floor-update", fmt.Sprintf(`{"type":"map_saved","floor_id":"%s","name":"%s"}`, ev.FloorID, ev.Name))
	}, engine.EventMapSaved)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.FloorEvent)
		h.Broadcast("floor-update", fmt.Sprintf(`{"type":"mapping_started","floor_id":"%s","name":"%s"}`, ev.FloorID, ev.Name))
	}, engine.EventMappingStarted)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.MappingCompletedEvent)
		h.Broadcast("floor-update", fmt.Sprintf(`{"type":"mapping_completed","floor_id":"%s","segmented":%t}`, ev.FloorID, ev.Segmented))
	}, engine.EventMappingCompleted)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.FloorEvent)
		h.Broadcast("floor-update", fmt.Sprintf(`{"type":"mapping_failed","floor_id":"%s","reason":"%s"}`, ev.FloorID, ev.Reason))
	}, engine.EventMappingFailed)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"robot":"connected"}`)
	}, engine.EventRobotConnected)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"robot":"disconnected"}`)
	}, engine.EventRobotDisconnected)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"messaging":"connected"}`)
	}, engine.EventMessagingConnected)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"messaging":"disconnected"}`)
	}, engine.EventMessagingDisconnected)
}

// SSEHandler serves the SSE endpoint.
func (h *EventHub) SSEHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.AddClient()
	defer h.RemoveClient(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data); err != nil {
				log.Printf("sse: write error: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}
