package stream

import (
	"sync"

	"github.com/abdoElHodaky/matchcore/internal/eventbus"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// channelAliases maps the path/control-frame channel names used on the
// wire to the internal event bus channels they subscribe to.
var channelAliases = map[string]eventbus.Channel{
	"marketdata":   eventbus.MarketData,
	"orderupdates": eventbus.OrderUpdates,
	"trades":       eventbus.Trades,
	"errors":       eventbus.Errors,
	"all":          eventbus.All,
}

func aliasForPath(path string) (eventbus.Channel, string) {
	switch path {
	case "/ws/marketdata":
		return eventbus.MarketData, "marketdata"
	case "/ws/orderupdates":
		return eventbus.OrderUpdates, "orderupdates"
	case "/ws/trades":
		return eventbus.Trades, "trades"
	case "/ws/all":
		return eventbus.All, "all"
	default:
		return eventbus.All, "all"
	}
}

// frameTypeFor maps an event bus event type onto the outbound frame type.
func frameTypeFor(t eventbus.EventType) string {
	switch t {
	case eventbus.EventTick:
		return "tick"
	case eventbus.EventTrade:
		return "trade"
	case eventbus.EventOrderUpdate:
		return "order_update"
	case eventbus.EventError:
		return "error"
	case eventbus.EventLag:
		return "lag"
	default:
		return string(t)
	}
}

// ConnMetrics receives the gateway's connection-count gauge and per-channel
// outbound message counter.
type ConnMetrics interface {
	SetWSConnections(n int)
	RecordWSMessageSent(channel string)
}

// Hub tracks connected streaming clients and bridges the event bus to
// each client's outbound frame queue.
type Hub struct {
	logger  *zap.Logger
	bus     *eventbus.Bus
	metrics ConnMetrics

	mu         sync.RWMutex
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a hub bound to bus, the process-wide event bus.
func NewHub(bus *eventbus.Bus, logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger,
		bus:        bus,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetMetrics attaches a connection/message recorder. Optional; nil-safe
// if never called.
func (h *Hub) SetMetrics(m ConnMetrics) {
	h.metrics = m
}

// Run drives client register/unregister bookkeeping. Must run in its own
// goroutine for the hub's lifetime.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			n := len(h.clients)
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.SetWSConnections(n)
			}
			h.logger.Info("gateway client connected", zap.String("client_id", client.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.bus.Unsubscribe(client.ID)
			if h.metrics != nil {
				h.metrics.SetWSConnections(n)
			}
			h.logger.Info("gateway client disconnected", zap.String("client_id", client.ID))
		}
	}
}

// Connect registers a new client with an initial channel membership
// derived from the connection path, starts its pumps, and bridges bus
// events for its lifetime. Blocks until the connection closes.
func (h *Hub) Connect(id string, conn *websocket.Conn, path string) {
	initial, aliasName := aliasForPath(path)
	client := newClient(id, conn, h, h.logger)
	sub := h.bus.Subscribe(id, initial)

	h.register <- client
	client.SendFrame(newFrame("connection", connectionFrame{
		Status:  "connected",
		Message: "subscribed to " + aliasName,
	}, 0))

	go h.pumpEvents(client, sub)
	go client.WritePump()
	client.ReadPump()
}

// pumpEvents forwards events from a client's bus subscription onto its
// outbound frame queue until the subscription is closed.
func (h *Hub) pumpEvents(client *Client, sub *eventbus.Subscriber) {
	for evt := range sub.Events() {
		client.SendFrame(newFrame(frameTypeFor(evt.Type), evt.Payload, evt.Timestamp))
		if h.metrics != nil {
			h.metrics.RecordWSMessageSent(string(evt.Channel))
		}
	}
}

// handleControl applies a client's subscribe/unsubscribe/ping request.
func (h *Hub) handleControl(client *Client, ctrl controlFrame) {
	switch ctrl.Action {
	case "subscribe":
		ch, ok := channelAliases[ctrl.Channel]
		if !ok {
			client.SendFrame(newFrame("error", errorFrame{Message: "unknown channel " + ctrl.Channel}, 0))
			return
		}
		h.bus.JoinChannel(client.ID, ch)
		client.SendFrame(newFrame("subscription", subscriptionFrame{Status: "success", Channel: ctrl.Channel}, 0))

	case "unsubscribe":
		ch, ok := channelAliases[ctrl.Channel]
		if !ok {
			client.SendFrame(newFrame("error", errorFrame{Message: "unknown channel " + ctrl.Channel}, 0))
			return
		}
		h.bus.LeaveChannel(client.ID, ch)
		client.SendFrame(newFrame("subscription", subscriptionFrame{Status: "unsubscribed", Channel: ctrl.Channel}, 0))

	case "ping":
		client.SendFrame(newFrame("pong", struct{}{}, 0))

	default:
		client.SendFrame(newFrame("error", errorFrame{Message: "unknown action " + ctrl.Action}, 0))
	}
}

// disconnect forces a client off the hub, e.g. after a send-buffer overflow.
func (h *Hub) disconnect(client *Client) {
	h.unregister <- client
}
