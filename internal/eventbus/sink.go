package eventbus

import "github.com/abdoElHodaky/matchcore/internal/matching"

// EngineSink adapts a Bus into a matching.EventSink, publishing every
// trade and order update onto the Trades and OrderUpdates channels.
type EngineSink struct {
	bus *Bus
}

// NewEngineSink wraps bus so it can be passed to matching.NewEngine.
func NewEngineSink(bus *Bus) *EngineSink {
	return &EngineSink{bus: bus}
}

// PublishTrade implements matching.EventSink.
func (s *EngineSink) PublishTrade(t *matching.Trade) {
	s.bus.Publish(Trades, EventTrade, t)
}

// PublishOrderUpdate implements matching.EventSink.
func (s *EngineSink) PublishOrderUpdate(u matching.OrderUpdate) {
	s.bus.Publish(OrderUpdates, EventOrderUpdate, u)
}
