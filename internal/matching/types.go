// Package matching implements the per-symbol limit order book and the
// matching engine that executes incoming orders against resting liquidity
// under price-time priority.
package matching

import (
	"github.com/shopspring/decimal"
)

// priceScale is the fixed number of decimal places prices are rounded to
// at every boundary, per the data model's fixed-scale decimal mandate.
const priceScale = 4

// roundPrice normalizes a decimal to the book's fixed scale.
func roundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(priceScale)
}

// Side is the side of an order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// OrderType is the order's execution type.
type OrderType string

const (
	Limit  OrderType = "LIMIT"
	Market OrderType = "MARKET"
)

// TimeInForce is the order's lifetime policy.
type TimeInForce string

const (
	GFD TimeInForce = "GFD" // Good-For-Day
	IOC TimeInForce = "IOC" // Immediate-Or-Cancel
	FOK TimeInForce = "FOK" // Fill-Or-Kill
)

// Status is an order's lifecycle state.
type Status string

const (
	StatusNew                      Status = "NEW"
	StatusPartiallyFilled          Status = "PARTIALLY_FILLED"
	StatusFilled                   Status = "FILLED"
	StatusCancelled                Status = "CANCELLED"
	StatusPartiallyFilledCancelled Status = "PARTIALLY_FILLED_CANCELLED"
	StatusRejected                 Status = "REJECTED"
)

// IsTerminal reports whether status is absorbing: once reached, an order
// never re-enters a book.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusPartiallyFilledCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

// Order is a single resting or terminal order.
type Order struct {
	OrderID           int64
	UserID            int64
	Symbol            string
	Side              Side
	Type              OrderType
	Price             decimal.Decimal
	InitialQuantity   int64
	RemainingQuantity int64
	TimeInForce       TimeInForce
	Timestamp         int64
	Status            Status
}

// IsResting reports whether the order currently occupies a book slot.
func (o *Order) IsResting() bool {
	return o.Status == StatusNew || o.Status == StatusPartiallyFilled
}

// Trade is a single execution between a taker and a resting maker.
type Trade struct {
	TradeID     int64
	Symbol      string
	Price       decimal.Decimal
	Quantity    int64
	BuyOrderID  int64
	SellOrderID int64
	Timestamp   int64
}

// Tick is a point-in-time snapshot of a symbol's top-of-book and session
// statistics.
type Tick struct {
	Symbol         string
	LastTradePrice decimal.Decimal
	BidPrice       decimal.Decimal
	BidQuantity    int64
	AskPrice       decimal.Decimal
	AskQuantity    int64
	TotalVolume    int64
	Timestamp      int64
}

// OrderUpdate reports a change in an order's lifecycle state.
type OrderUpdate struct {
	OrderID           int64
	Status            Status
	RemainingQuantity int64
	LastFillQuantity  int64
	LastFillPrice     decimal.Decimal
	Timestamp         int64
}

// Quote is the aggregated top-of-book for a symbol.
type Quote struct {
	Symbol         string
	LastTradePrice decimal.Decimal
	BidPrice       decimal.Decimal
	BidQuantity    int64
	AskPrice       decimal.Decimal
	AskQuantity    int64
}

// PriceLevel is one aggregated depth level.
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity int64
	Orders   int
}

// RejectReason explains a synchronous submission rejection.
type RejectReason string

const (
	RejectMissingField RejectReason = "missing required field"
	RejectBadQuantity  RejectReason = "quantity must be positive"
	RejectBadPrice     RejectReason = "limit price must be positive"
	RejectUnknownSide  RejectReason = "unknown side"
	RejectUnknownType  RejectReason = "unknown order type"
	RejectUnknownTIF   RejectReason = "unknown time in force"
	RejectEngineHalted RejectReason = "engine halted"
)

// Command is an inbound order request prior to engine assignment of
// OrderID/Timestamp.
type Command struct {
	UserID      int64
	Symbol      string
	Side        Side
	Type        OrderType
	Price       decimal.Decimal
	HasPrice    bool
	Quantity    int64
	TimeInForce TimeInForce
}

// Receipt is returned to the submitter on acceptance (including
// synchronous rejections folded into Status == StatusRejected).
type Receipt struct {
	OrderID           int64
	Status            Status
	RemainingQuantity int64
	Trades            []*Trade
	Reject            RejectReason
}
