// Package simulator generates a demo random-walk price feed for symbols
// that have no real upstream market data source, publishing Tick events
// onto the event bus on a fixed interval.
package simulator

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/abdoElHodaky/matchcore/internal/eventbus"
	"github.com/abdoElHodaky/matchcore/internal/matching"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Generator produces simulated ticks for a fixed set of symbols using a
// Gaussian random walk, the same model the reference market data
// generator uses.
type Generator struct {
	bus        *eventbus.Bus
	logger     *zap.Logger
	symbols    []string
	volatility float64
	interval   time.Duration

	prices      map[string]float64
	totalVolume map[string]int64
	rng         *rand.Rand
}

// Config holds the subset of the application configuration the
// simulator needs.
type Config struct {
	Symbols        []string
	Volatility     float64
	UpdateInterval float64
}

// New creates a Generator seeded with a starting price per symbol drawn
// uniformly from [50, 500], mirroring the reference generator's initial
// state.
func New(bus *eventbus.Bus, cfg Config, logger *zap.Logger) *Generator {
	rng := rand.New(rand.NewSource(1))
	prices := make(map[string]float64, len(cfg.Symbols))
	volume := make(map[string]int64, len(cfg.Symbols))
	for _, sym := range cfg.Symbols {
		prices[sym] = 50 + rng.Float64()*450
		volume[sym] = 0
	}

	interval := time.Duration(cfg.UpdateInterval * float64(time.Second))
	if interval <= 0 {
		interval = time.Second
	}

	return &Generator{
		bus:         bus,
		logger:      logger,
		symbols:     cfg.Symbols,
		volatility:  cfg.Volatility,
		interval:    interval,
		prices:      prices,
		totalVolume: volume,
		rng:         rng,
	}
}

// Run publishes one tick per symbol every interval until ctx is
// cancelled.
func (g *Generator) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.tickAll()
		}
	}
}

func (g *Generator) tickAll() {
	for _, sym := range g.symbols {
		price := g.nextPrice(g.prices[sym])
		g.prices[sym] = price

		spread := price * (0.001 + g.rng.Float64()*0.004)
		bidPrice := price - spread/2
		askPrice := price + spread/2
		bidQty := int64(100 + g.rng.Intn(9900))
		askQty := int64(100 + g.rng.Intn(9900))
		lastQty := int64(10 + g.rng.Intn(990))
		g.totalVolume[sym] += lastQty

		tick := matching.Tick{
			Symbol:         sym,
			LastTradePrice: decimal.NewFromFloat(price).Round(4),
			BidPrice:       decimal.NewFromFloat(bidPrice).Round(4),
			BidQuantity:    bidQty,
			AskPrice:       decimal.NewFromFloat(askPrice).Round(4),
			AskQuantity:    askQty,
			TotalVolume:    g.totalVolume[sym],
			Timestamp:      time.Now().UnixMilli(),
		}
		g.bus.Publish(eventbus.MarketData, eventbus.EventTick, tick)
	}
}

// nextPrice applies a Gaussian random walk step, clamped to stay within
// [1, 10000], matching the reference generator's guardrails.
func (g *Generator) nextPrice(current float64) float64 {
	changePct := g.rng.NormFloat64() * g.volatility
	next := current * (1 + changePct)
	next = math.Max(1.0, next)
	next = math.Min(10000.0, next)
	return math.Round(next*100) / 100
}
