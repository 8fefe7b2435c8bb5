// Package httpapi exposes the matching engine over a REST surface built
// on gin, per spec.md section 6.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	matcherrors "github.com/abdoElHodaky/matchcore/internal/errors"
	"github.com/abdoElHodaky/matchcore/internal/matching"
	"github.com/abdoElHodaky/matchcore/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultDepthLevels = 10

// Handlers binds the matching engine to the HTTP surface.
type Handlers struct {
	engine  *matching.Engine
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewHandlers creates a Handlers bound to engine. metrics may be nil.
func NewHandlers(engine *matching.Engine, metrics *metrics.Collector, logger *zap.Logger) *Handlers {
	return &Handlers{engine: engine, metrics: metrics, logger: logger}
}

// RegisterRoutes attaches every endpoint to router.
func (h *Handlers) RegisterRoutes(router gin.IRouter) {
	router.POST("/order/place", h.PlaceOrder)
	router.GET("/market/quote/:symbol", h.GetQuote)
	router.GET("/market/depth/:symbol", h.GetDepth)
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// PlaceOrder submits a new order to the matching engine. Per spec.md
// section 6.1, acceptance responds 200 with a {success, data} envelope
// and rejection (including malformed requests) responds 400 with a
// {success, error} envelope.
func (h *Handlers) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		matchErr := matcherrors.Wrap(err, matcherrors.Validation, "malformed order request")
		h.logger.Debug("rejecting order request", zap.Error(matchErr))
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: matchErr.Error()})
		return
	}

	cmd := matching.Command{
		UserID:      req.UserID,
		Symbol:      req.Symbol,
		Side:        matching.Side(req.Side),
		Type:        matching.OrderType(req.Type),
		Quantity:    req.Quantity,
		TimeInForce: matching.TimeInForce(req.TimeInForce),
	}

	if req.Price != "" {
		price, err := decimal.NewFromString(req.Price)
		if err != nil {
			matchErr := matcherrors.Wrap(err, matcherrors.Validation, "invalid price")
			h.logger.Debug("rejecting order request", zap.Error(matchErr))
			c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: matchErr.Error()})
			return
		}
		cmd.Price = price
		cmd.HasPrice = true
	}

	start := time.Now()
	receipt := h.engine.Submit(cmd)

	if h.metrics != nil {
		if receipt.Status == matching.StatusRejected {
			h.metrics.RecordReject(req.Symbol, string(receipt.Reject))
		} else {
			h.metrics.RecordSubmit(req.Symbol, req.Side, req.Type, time.Since(start))
			for range receipt.Trades {
				h.metrics.RecordTrade(req.Symbol)
			}
		}
	}

	if receipt.Status == matching.StatusRejected {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: string(receipt.Reject)})
		return
	}

	trades := make([]TradeResponse, 0, len(receipt.Trades))
	for _, t := range receipt.Trades {
		trades = append(trades, toTradeResponse(t))
	}

	data := OrderData{
		OrderID:           receipt.OrderID,
		UserID:            req.UserID,
		Symbol:            req.Symbol,
		Side:              req.Side,
		Type:              req.Type,
		Price:             req.Price,
		Quantity:          req.Quantity,
		RemainingQuantity: receipt.RemainingQuantity,
		TimeInForce:       req.TimeInForce,
		Status:            string(receipt.Status),
		Trades:            trades,
	}
	c.JSON(http.StatusOK, PlaceOrderResponse{Success: true, Data: &data})
}

// GetQuote returns the current top-of-book quote for a symbol.
func (h *Handlers) GetQuote(c *gin.Context) {
	symbol := c.Param("symbol")
	q := h.engine.BestQuote(symbol)
	c.JSON(http.StatusOK, QuoteResponse{
		Symbol:         q.Symbol,
		LastTradePrice: q.LastTradePrice.String(),
		BidPrice:       q.BidPrice.String(),
		BidQuantity:    q.BidQuantity,
		AskPrice:       q.AskPrice.String(),
		AskQuantity:    q.AskQuantity,
	})
}

// GetDepth returns aggregated book depth for a symbol. The levels query
// parameter bounds how many price levels per side are returned; it
// defaults to defaultDepthLevels.
func (h *Handlers) GetDepth(c *gin.Context) {
	symbol := c.Param("symbol")
	levels := defaultDepthLevels
	if raw := c.Query("levels"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			levels = n
		}
	}

	bids, asks := h.engine.Depth(symbol, levels)
	c.JSON(http.StatusOK, DepthResponse{
		Symbol: symbol,
		Bids:   toDepthLevels(bids),
		Asks:   toDepthLevels(asks),
	})
}

// Health reports liveness and whether the engine has halted. It always
// responds 200 so callers can distinguish "unhealthy but reachable" from
// a process that is actually down; Halted signals the former.
func (h *Handlers) Health(c *gin.Context) {
	status := "ok"
	if h.engine.Halted() {
		status = "halted"
	}
	c.JSON(http.StatusOK, HealthResponse{Status: status, Halted: h.engine.Halted()})
}
