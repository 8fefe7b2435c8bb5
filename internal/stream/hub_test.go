package stream

import (
	"encoding/json"
	"testing"

	"github.com/abdoElHodaky/matchcore/internal/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(hub *Hub, id string) *Client {
	return newClient(id, nil, hub, zap.NewNop())
}

func decodeFrame(t *testing.T, raw []byte) Frame {
	t.Helper()
	var f Frame
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

func TestAliasForPathDefaultsToAll(t *testing.T) {
	ch, name := aliasForPath("/ws/marketdata")
	assert.Equal(t, eventbus.MarketData, ch)
	assert.Equal(t, "marketdata", name)

	ch, name = aliasForPath("/unknown")
	assert.Equal(t, eventbus.All, ch)
	assert.Equal(t, "all", name)
}

func TestHandleControlSubscribeJoinsChannel(t *testing.T) {
	bus := eventbus.NewBus(zap.NewNop(), 8)
	hub := NewHub(bus, zap.NewNop())
	client := newTestClient(hub, "c1")
	sub := bus.Subscribe("c1")

	hub.handleControl(client, controlFrame{Action: "subscribe", Channel: "trades"})
	ack := decodeFrame(t, <-client.send)
	assert.Equal(t, "subscription", ack.Type)

	bus.Publish(eventbus.Trades, eventbus.EventTrade, "t1")
	evt := <-sub.Events()
	assert.Equal(t, "t1", evt.Payload)
}

func TestHandleControlUnknownChannelErrors(t *testing.T) {
	bus := eventbus.NewBus(zap.NewNop(), 8)
	hub := NewHub(bus, zap.NewNop())
	client := newTestClient(hub, "c1")
	bus.Subscribe("c1")

	hub.handleControl(client, controlFrame{Action: "subscribe", Channel: "bogus"})
	errFrame := decodeFrame(t, <-client.send)
	assert.Equal(t, "error", errFrame.Type)
}

func TestHandleControlPing(t *testing.T) {
	bus := eventbus.NewBus(zap.NewNop(), 8)
	hub := NewHub(bus, zap.NewNop())
	client := newTestClient(hub, "c1")

	hub.handleControl(client, controlFrame{Action: "ping"})
	pong := decodeFrame(t, <-client.send)
	assert.Equal(t, "pong", pong.Type)
}

func TestFrameTypeForMapsEventTypes(t *testing.T) {
	assert.Equal(t, "tick", frameTypeFor(eventbus.EventTick))
	assert.Equal(t, "trade", frameTypeFor(eventbus.EventTrade))
	assert.Equal(t, "order_update", frameTypeFor(eventbus.EventOrderUpdate))
	assert.Equal(t, "lag", frameTypeFor(eventbus.EventLag))
}
