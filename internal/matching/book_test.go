package matching

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestOrderBookInsertAggregatesLevel(t *testing.T) {
	book := NewOrderBook("AAPL", zap.NewNop())
	a := &Order{OrderID: 1, Symbol: "AAPL", Side: Buy, Price: decimal.RequireFromString("10.00"), RemainingQuantity: 5}
	b := &Order{OrderID: 2, Symbol: "AAPL", Side: Buy, Price: decimal.RequireFromString("10.00"), RemainingQuantity: 7}
	book.Insert(a)
	book.Insert(b)

	q := book.BestQuote()
	assert.EqualValues(t, 12, q.BidQuantity)
	assert.True(t, q.BidPrice.Equal(decimal.RequireFromString("10.00")))
}

func TestOrderBookFrontMakerIsEarliestAtPrice(t *testing.T) {
	book := NewOrderBook("AAPL", zap.NewNop())
	a := &Order{OrderID: 1, Side: Buy, Price: decimal.RequireFromString("10.00"), RemainingQuantity: 5}
	b := &Order{OrderID: 2, Side: Buy, Price: decimal.RequireFromString("10.00"), RemainingQuantity: 5}
	book.Insert(a)
	book.Insert(b)

	front := book.frontMaker(Buy)
	assert.Equal(t, int64(1), front.OrderID)
}

func TestOrderBookBestBidBelowBestAsk(t *testing.T) {
	book := NewOrderBook("AAPL", zap.NewNop())
	book.Insert(&Order{OrderID: 1, Side: Buy, Price: decimal.RequireFromString("9.00"), RemainingQuantity: 5})
	book.Insert(&Order{OrderID: 2, Side: Sell, Price: decimal.RequireFromString("10.00"), RemainingQuantity: 5})

	q := book.BestQuote()
	assert.True(t, q.BidPrice.LessThan(q.AskPrice))
}

func TestOrderBookCancelRemovesOrderAndEmptiesLevel(t *testing.T) {
	book := NewOrderBook("AAPL", zap.NewNop())
	book.Insert(&Order{OrderID: 1, Side: Buy, Price: decimal.RequireFromString("10.00"), RemainingQuantity: 5})

	order, ok := book.Cancel(1)
	assert.True(t, ok)
	assert.Equal(t, int64(1), order.OrderID)

	q := book.BestQuote()
	assert.True(t, q.BidPrice.IsZero())
	assert.EqualValues(t, 0, q.BidQuantity)
}

func TestOrderBookDepthOrdering(t *testing.T) {
	book := NewOrderBook("AAPL", zap.NewNop())
	book.Insert(&Order{OrderID: 1, Side: Buy, Price: decimal.RequireFromString("9.00"), RemainingQuantity: 5})
	book.Insert(&Order{OrderID: 2, Side: Buy, Price: decimal.RequireFromString("10.00"), RemainingQuantity: 5})
	book.Insert(&Order{OrderID: 3, Side: Sell, Price: decimal.RequireFromString("12.00"), RemainingQuantity: 5})
	book.Insert(&Order{OrderID: 4, Side: Sell, Price: decimal.RequireFromString("11.00"), RemainingQuantity: 5})

	bids, asks := book.Depth(10)
	assert.True(t, bids[0].Price.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, bids[1].Price.Equal(decimal.RequireFromString("9.00")))
	assert.True(t, asks[0].Price.Equal(decimal.RequireFromString("11.00")))
	assert.True(t, asks[1].Price.Equal(decimal.RequireFromString("12.00")))
}
