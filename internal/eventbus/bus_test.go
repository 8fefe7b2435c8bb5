package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishDeliversInFIFOOrder(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	sub := bus.Subscribe("s1", Trades)

	bus.Publish(Trades, EventTrade, "t1")
	bus.Publish(Trades, EventTrade, "t2")
	bus.Publish(Trades, EventTrade, "t3")

	first := <-sub.Events()
	second := <-sub.Events()
	third := <-sub.Events()

	assert.Equal(t, "t1", first.Payload)
	assert.Equal(t, "t2", second.Payload)
	assert.Equal(t, "t3", third.Payload)
}

func TestSubscriberOnlyReceivesJoinedChannels(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	sub := bus.Subscribe("s1", Trades)

	bus.Publish(MarketData, EventTick, "tick1")
	bus.Publish(Trades, EventTrade, "trade1")

	evt := <-sub.Events()
	assert.Equal(t, EventTrade, evt.Type)
	assert.Equal(t, "trade1", evt.Payload)

	select {
	case <-sub.Events():
		t.Fatal("unexpected second event delivered to non-member channel")
	default:
	}
}

func TestAllChannelReceivesEveryTopic(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	sub := bus.Subscribe("s1", All)

	bus.Publish(MarketData, EventTick, "tick")
	bus.Publish(Trades, EventTrade, "trade")
	bus.Publish(OrderUpdates, EventOrderUpdate, "update")
	bus.Publish(Errors, EventError, "err")

	for i := 0; i < 4; i++ {
		select {
		case <-sub.Events():
		default:
			t.Fatalf("expected event %d on ALL subscriber", i)
		}
	}
}

func TestOverflowDropsOldestWithoutEvictingASecondLiveEvent(t *testing.T) {
	bus := NewBus(zap.NewNop(), 2)
	sub := bus.Subscribe("s1", Trades)

	bus.Publish(Trades, EventTrade, "t1")
	bus.Publish(Trades, EventTrade, "t2") // queue at capacity 2
	bus.Publish(Trades, EventTrade, "t3") // overflow: drops t1, retries t3, then notifies lag into the reserved slot

	first := <-sub.Events()
	second := <-sub.Events()
	third := <-sub.Events()

	require.Equal(t, "t2", first.Payload)
	require.Equal(t, "t3", second.Payload)
	require.Equal(t, EventLag, third.Type)

	select {
	case evt := <-sub.Events():
		t.Fatalf("expected no fourth event once the queue is drained, got %+v", evt)
	default:
	}
}

func TestOverflowNotifiesLagWhenRoomExists(t *testing.T) {
	bus := NewBus(zap.NewNop(), 2)
	sub := bus.Subscribe("s1", Trades)

	bus.Publish(Trades, EventTrade, "t1")
	bus.Publish(Trades, EventTrade, "t2") // queue at capacity 2
	<-sub.Events()                        // consumer drains one slot before the next publish

	bus.Publish(Trades, EventTrade, "t3") // direct send succeeds into the freed slot, no overflow
	bus.Publish(Trades, EventTrade, "t4") // overflow: drops t2, retries t4, then notifies lag into the reserved slot

	first := <-sub.Events()
	second := <-sub.Events()
	third := <-sub.Events()

	assert.Equal(t, "t3", first.Payload)
	assert.Equal(t, "t4", second.Payload)
	assert.Equal(t, EventLag, third.Type)
}

func TestUnsubscribeClosesQueue(t *testing.T) {
	bus := NewBus(zap.NewNop(), 4)
	sub := bus.Subscribe("s1", Trades)
	bus.Unsubscribe("s1")

	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestJoinAndLeaveChannel(t *testing.T) {
	bus := NewBus(zap.NewNop(), 4)
	sub := bus.Subscribe("s1")

	bus.Publish(Trades, EventTrade, "before-join")
	select {
	case <-sub.Events():
		t.Fatal("should not receive before joining the channel")
	default:
	}

	bus.JoinChannel("s1", Trades)
	bus.Publish(Trades, EventTrade, "after-join")
	evt := <-sub.Events()
	assert.Equal(t, "after-join", evt.Payload)

	bus.LeaveChannel("s1", Trades)
	bus.Publish(Trades, EventTrade, "after-leave")
	select {
	case <-sub.Events():
		t.Fatal("should not receive after leaving the channel")
	default:
	}
}
