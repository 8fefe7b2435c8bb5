package eventbus

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ChannelNames maps the four real channels onto the Redis pub/sub topic
// names they mirror to, configurable per deployment (spec.md section 6.6).
type ChannelNames struct {
	MarketData   string
	OrderUpdates string
	Trade        string
	Error        string
}

// Bridge mirrors a local Bus onto Redis pub/sub, so multiple gateway
// processes behind the same engine observe the same event stream, per the
// redis.asyncio pub/sub pattern the reference market-data and websocket
// servers use.
type Bridge struct {
	client *redis.Client
	bus    *Bus
	names  ChannelNames
	logger *zap.Logger
}

// NewBridge constructs a bridge bound to an existing Redis client.
func NewBridge(client *redis.Client, bus *Bus, names ChannelNames, logger *zap.Logger) *Bridge {
	return &Bridge{client: client, bus: bus, names: names, logger: logger}
}

func (br *Bridge) topicFor(ch Channel) string {
	switch ch {
	case MarketData:
		return br.names.MarketData
	case OrderUpdates:
		return br.names.OrderUpdates
	case Trades:
		return br.names.Trade
	case Errors:
		return br.names.Error
	default:
		return ""
	}
}

func (br *Bridge) channelFor(topic string) (Channel, bool) {
	switch topic {
	case br.names.MarketData:
		return MarketData, true
	case br.names.OrderUpdates:
		return OrderUpdates, true
	case br.names.Trade:
		return Trades, true
	case br.names.Error:
		return Errors, true
	default:
		return "", false
	}
}

// wireEnvelope is the JSON shape published to Redis; it carries enough of
// the event's type information that a remote process can decode Payload
// without sharing this package's concrete event structs.
type wireEnvelope struct {
	Type      EventType       `json:"type"`
	Channel   Channel         `json:"channel"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// PublishOut subscribes to the local bus on every real channel and mirrors
// each event to Redis. Runs until ctx is cancelled.
func (br *Bridge) PublishOut(ctx context.Context) error {
	sub := br.bus.Subscribe("redis-bridge-out", All)
	defer br.bus.Unsubscribe("redis-bridge-out")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if evt.Type == EventLag {
				continue
			}
			topic := br.topicFor(evt.Channel)
			if topic == "" {
				continue
			}
			payload, err := json.Marshal(evt.Payload)
			if err != nil {
				br.logger.Error("failed to marshal event for redis bridge", zap.Error(err))
				continue
			}
			wire, err := json.Marshal(wireEnvelope{
				Type: evt.Type, Channel: evt.Channel, Payload: payload, Timestamp: evt.Timestamp,
			})
			if err != nil {
				br.logger.Error("failed to marshal bridge envelope", zap.Error(err))
				continue
			}
			if err := br.client.Publish(ctx, topic, wire).Err(); err != nil {
				br.logger.Error("redis publish failed", zap.String("topic", topic), zap.Error(err))
			}
		}
	}
}

// ConsumeIn subscribes to the Redis topics and re-publishes every message
// onto the local bus, so events produced by a peer process's engine reach
// this process's local subscribers. Runs until ctx is cancelled.
func (br *Bridge) ConsumeIn(ctx context.Context) error {
	topics := []string{br.names.MarketData, br.names.OrderUpdates, br.names.Trade, br.names.Error}
	pubsub := br.client.Subscribe(ctx, topics...)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			localChannel, ok := br.channelFor(msg.Channel)
			if !ok {
				continue
			}
			var wire wireEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
				br.logger.Error("failed to unmarshal bridge envelope", zap.Error(err))
				continue
			}
			var payload any
			if err := json.Unmarshal(wire.Payload, &payload); err != nil {
				br.logger.Error("failed to unmarshal bridge payload", zap.Error(err))
				continue
			}
			br.bus.Publish(localChannel, wire.Type, payload)
		}
	}
}
