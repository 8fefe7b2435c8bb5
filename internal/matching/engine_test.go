package matching

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine() *Engine {
	return NewEngine(zap.NewNop(), NopSink{})
}

func limitCmd(symbol string, side Side, price string, qty int64, tif TimeInForce) Command {
	return Command{
		Symbol:      symbol,
		Side:        side,
		Type:        Limit,
		Price:       decimal.RequireFromString(price),
		HasPrice:    true,
		Quantity:    qty,
		TimeInForce: tif,
	}
}

func marketCmd(symbol string, side Side, qty int64, tif TimeInForce) Command {
	return Command{
		Symbol:      symbol,
		Side:        side,
		Type:        Market,
		Quantity:    qty,
		TimeInForce: tif,
	}
}

// S1 — Empty-book LIMIT rests.
func TestS1_EmptyBookLimitRests(t *testing.T) {
	e := newTestEngine()
	r := e.Submit(limitCmd("AAPL", Buy, "150.00", 10, GFD))

	assert.Equal(t, StatusNew, r.Status)
	assert.Empty(t, r.Trades)

	q := e.BestQuote("AAPL")
	assert.True(t, q.BidPrice.Equal(decimal.RequireFromString("150.00")))
	assert.EqualValues(t, 10, q.BidQuantity)
	assert.True(t, q.AskPrice.IsZero())
	assert.EqualValues(t, 0, q.AskQuantity)
}

// S2 — Full cross.
func TestS2_FullCross(t *testing.T) {
	e := newTestEngine()
	e.Submit(limitCmd("AAPL", Buy, "150.00", 10, GFD))
	r := e.Submit(limitCmd("AAPL", Sell, "150.00", 10, GFD))

	require.Len(t, r.Trades, 1)
	assert.True(t, r.Trades[0].Price.Equal(decimal.RequireFromString("150.00")))
	assert.EqualValues(t, 10, r.Trades[0].Quantity)
	assert.Equal(t, StatusFilled, r.Status)

	q := e.BestQuote("AAPL")
	assert.EqualValues(t, 0, q.BidQuantity)
	assert.EqualValues(t, 0, q.AskQuantity)
}

// S3 — Partial then rest.
func TestS3_PartialThenRest(t *testing.T) {
	e := newTestEngine()
	e.Submit(limitCmd("AAPL", Buy, "150.00", 10, GFD))
	r := e.Submit(limitCmd("AAPL", Sell, "150.00", 6, GFD))

	require.Len(t, r.Trades, 1)
	assert.EqualValues(t, 6, r.Trades[0].Quantity)
	assert.Equal(t, StatusFilled, r.Status)

	q := e.BestQuote("AAPL")
	assert.True(t, q.BidPrice.Equal(decimal.RequireFromString("150.00")))
	assert.EqualValues(t, 4, q.BidQuantity)
}

// S4 — IOC with no liquidity.
func TestS4_IOCNoLiquidity(t *testing.T) {
	e := newTestEngine()
	r := e.Submit(limitCmd("TSLA", Buy, "200.00", 15, IOC))

	assert.Empty(t, r.Trades)
	assert.Equal(t, StatusCancelled, r.Status)

	q := e.BestQuote("TSLA")
	assert.EqualValues(t, 0, q.BidQuantity)
}

// S5 — FOK insufficient.
func TestS5_FOKInsufficient(t *testing.T) {
	e := newTestEngine()
	e.Submit(limitCmd("XYZ", Sell, "100.00", 5, GFD))
	r := e.Submit(marketCmd("XYZ", Buy, 10, FOK))

	assert.Empty(t, r.Trades)
	assert.Equal(t, StatusCancelled, r.Status)

	q := e.BestQuote("XYZ")
	assert.EqualValues(t, 5, q.AskQuantity)
}

// S6 — Price-time tiebreak.
func TestS6_PriceTimeTiebreak(t *testing.T) {
	e := newTestEngine()
	first := e.Submit(limitCmd("QQQ", Buy, "100.00", 5, GFD))
	second := e.Submit(limitCmd("QQQ", Buy, "100.00", 5, GFD))
	r := e.Submit(limitCmd("QQQ", Sell, "100.00", 5, GFD))

	require.Len(t, r.Trades, 1)
	assert.Equal(t, first.OrderID, r.Trades[0].BuyOrderID)
	assert.NotEqual(t, second.OrderID, r.Trades[0].BuyOrderID)

	q := e.BestQuote("QQQ")
	assert.EqualValues(t, 5, q.BidQuantity) // second order still resting
}

func TestFOKMarketFullFill(t *testing.T) {
	e := newTestEngine()
	e.Submit(limitCmd("FOK1", Sell, "10.00", 20, GFD))
	r := e.Submit(marketCmd("FOK1", Buy, 20, FOK))

	require.Len(t, r.Trades, 1)
	assert.Equal(t, StatusFilled, r.Status)
}

func TestRejectMissingQuantity(t *testing.T) {
	e := newTestEngine()
	r := e.Submit(limitCmd("ANY", Buy, "1.00", 0, GFD))
	assert.Equal(t, StatusRejected, r.Status)
	assert.Equal(t, RejectBadQuantity, r.Reject)
}

func TestRejectLimitWithoutPrice(t *testing.T) {
	e := newTestEngine()
	r := e.Submit(Command{Symbol: "ANY", Side: Buy, Type: Limit, Quantity: 1, TimeInForce: GFD})
	assert.Equal(t, StatusRejected, r.Status)
	assert.Equal(t, RejectBadPrice, r.Reject)
}

func TestMarketOrderNeverRests(t *testing.T) {
	e := newTestEngine()
	e.Submit(limitCmd("MKT", Sell, "10.00", 5, GFD))
	r := e.Submit(marketCmd("MKT", Buy, 10, GFD))

	require.Len(t, r.Trades, 1)
	assert.EqualValues(t, 5, r.Trades[0].Quantity)
	assert.Equal(t, StatusPartiallyFilledCancelled, r.Status)

	q := e.BestQuote("MKT")
	assert.EqualValues(t, 0, q.AskQuantity)
	assert.EqualValues(t, 0, q.BidQuantity)
}

// Conservation of quantity across a partial fill (invariant 2).
func TestConservationOfQuantity(t *testing.T) {
	e := newTestEngine()
	e.Submit(limitCmd("CONS", Buy, "50.00", 10, GFD))
	r := e.Submit(limitCmd("CONS", Sell, "50.00", 3, GFD))

	var filled int64
	for _, tr := range r.Trades {
		filled += tr.Quantity
	}
	assert.Equal(t, int64(3), filled)
	assert.EqualValues(t, 0, r.RemainingQuantity) // sell 3 fully filled against resting 10
}

// Monotonic IDs across submissions (invariant 5).
func TestMonotonicOrderIDs(t *testing.T) {
	e := newTestEngine()
	a := e.Submit(limitCmd("MONO", Buy, "1.00", 1, GFD))
	b := e.Submit(limitCmd("MONO", Buy, "1.00", 1, GFD))
	assert.Less(t, a.OrderID, b.OrderID)
}
