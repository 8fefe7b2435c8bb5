package httpapi

import "github.com/abdoElHodaky/matchcore/internal/matching"

// PlaceOrderRequest is the inbound body for POST /order/place, per
// spec.md section 6.1.
type PlaceOrderRequest struct {
	UserID      int64  `json:"userId"`
	Symbol      string `json:"symbol" binding:"required"`
	Side        string `json:"side" binding:"required,oneof=BUY SELL"`
	Type        string `json:"type" binding:"required,oneof=LIMIT MARKET"`
	Price       string `json:"price"`
	Quantity    int64  `json:"quantity" binding:"required,gt=0"`
	TimeInForce string `json:"timeInForce" binding:"required,oneof=GFD IOC FOK"`
}

// TradeResponse is the outbound shape of a single execution.
type TradeResponse struct {
	TradeID     int64  `json:"tradeId"`
	Symbol      string `json:"symbol"`
	Price       string `json:"price"`
	Quantity    int64  `json:"quantity"`
	BuyOrderID  int64  `json:"buyOrderId"`
	SellOrderID int64  `json:"sellOrderId"`
	Timestamp   int64  `json:"timestamp"`
}

// OrderData is the `data` payload of a successful POST /order/place
// response, per spec.md section 6.1.
type OrderData struct {
	OrderID           int64           `json:"orderId"`
	UserID            int64           `json:"userId"`
	Symbol            string          `json:"symbol"`
	Side              string          `json:"side"`
	Type              string          `json:"type"`
	Price             string          `json:"price,omitempty"`
	Quantity          int64           `json:"quantity"`
	RemainingQuantity int64           `json:"remainingQuantity"`
	TimeInForce       string          `json:"timeInForce"`
	Status            string          `json:"status"`
	Trades            []TradeResponse `json:"trades,omitempty"`
}

// PlaceOrderResponse is the outbound body for POST /order/place on
// acceptance: `{"success": true, "data": {...}}`.
type PlaceOrderResponse struct {
	Success bool       `json:"success"`
	Data    *OrderData `json:"data,omitempty"`
}

// ErrorResponse is the outbound body for a rejected or malformed
// request: `{"success": false, "error": "<message>"}`.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// QuoteResponse is the outbound body for GET /market/quote/:symbol.
type QuoteResponse struct {
	Symbol         string `json:"symbol"`
	LastTradePrice string `json:"last_trade_price"`
	BidPrice       string `json:"bid_price"`
	BidQuantity    int64  `json:"bid_quantity"`
	AskPrice       string `json:"ask_price"`
	AskQuantity    int64  `json:"ask_quantity"`
}

// DepthLevel is one aggregated price level in a depth response.
type DepthLevel struct {
	Price    string `json:"price"`
	Quantity int64  `json:"quantity"`
	Orders   int    `json:"orders"`
}

// DepthResponse is the outbound body for GET /market/depth/:symbol.
type DepthResponse struct {
	Symbol string       `json:"symbol"`
	Bids   []DepthLevel `json:"bids"`
	Asks   []DepthLevel `json:"asks"`
}

// HealthResponse is the outbound body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Halted bool   `json:"halted"`
}

func toTradeResponse(t *matching.Trade) TradeResponse {
	return TradeResponse{
		TradeID:     t.TradeID,
		Symbol:      t.Symbol,
		Price:       t.Price.StringFixed(4),
		Quantity:    t.Quantity,
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		Timestamp:   t.Timestamp,
	}
}

func toDepthLevels(levels []matching.PriceLevel) []DepthLevel {
	out := make([]DepthLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, DepthLevel{Price: l.Price.StringFixed(4), Quantity: l.Quantity, Orders: l.Orders})
	}
	return out
}
