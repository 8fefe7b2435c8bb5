package matching

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
	"go.uber.org/zap"
)

// priceLevel holds every resting order at one price, in arrival order.
// Index 0 is always the front-of-queue maker for that level.
type priceLevel struct {
	price  decimal.Decimal
	orders []*Order
}

// OrderBook holds the resting bids and asks for a single symbol as two
// price-sorted trees of FIFO queues, per spec.md section 4.1: a sorted map
// keyed by price whose value is a FIFO queue of orders at that level.
//
// OrderBook itself performs no locking; callers (the Engine) hold the
// per-symbol critical section for the duration of a submission so that
// order-ID/timestamp assignment and book mutation are linearized together.
type OrderBook struct {
	Symbol string

	bids *btree.BTreeG[*priceLevel] // highest price first
	asks *btree.BTreeG[*priceLevel] // lowest price first

	orders map[int64]*Order // order id -> order, for O(1) cancel lookup

	lastTradePrice decimal.Decimal
	totalVolume    int64

	logger *zap.Logger
}

// NewOrderBook creates an empty book for symbol.
func NewOrderBook(symbol string, logger *zap.Logger) *OrderBook {
	bids := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price.GreaterThan(b.price)
	})
	asks := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price.LessThan(b.price)
	})
	return &OrderBook{
		Symbol: symbol,
		bids:   bids,
		asks:   asks,
		orders: make(map[int64]*Order),
		logger: logger,
	}
}

func (b *OrderBook) sideTree(side Side) *btree.BTreeG[*priceLevel] {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) oppositeTree(side Side) *btree.BTreeG[*priceLevel] {
	if side == Buy {
		return b.asks
	}
	return b.bids
}

// bestLevel returns the best (highest bid / lowest ask) level on side,
// without removing it.
func (b *OrderBook) bestLevel(side Side) (*priceLevel, bool) {
	return b.sideTree(side).Min()
}

// frontMaker returns the resting order at the head of the best level on
// side, i.e. the next maker in price-time priority.
func (b *OrderBook) frontMaker(side Side) *Order {
	level, ok := b.bestLevel(side)
	if !ok || len(level.orders) == 0 {
		return nil
	}
	return level.orders[0]
}

// popFrontMaker removes and returns the front maker on side, deleting the
// level if it becomes empty. The order must already have
// RemainingQuantity == 0 or be otherwise ready to leave the book.
func (b *OrderBook) popFrontMaker(side Side) *Order {
	level, ok := b.bestLevel(side)
	if !ok || len(level.orders) == 0 {
		return nil
	}
	order := level.orders[0]
	level.orders = level.orders[1:]
	delete(b.orders, order.OrderID)
	if len(level.orders) == 0 {
		b.sideTree(side).Delete(level)
	}
	return order
}

// Insert adds a resting order to its side of the book. Inserting an order
// with RemainingQuantity == 0 is illegal and is rejected by the caller
// before this is reached.
func (b *OrderBook) Insert(order *Order) {
	tree := b.sideTree(order.Side)
	probe := &priceLevel{price: order.Price}
	level, ok := tree.Get(probe)
	if !ok {
		level = &priceLevel{price: order.Price}
		tree.Set(level)
	}
	level.orders = append(level.orders, order)
	b.orders[order.OrderID] = order
}

// Cancel removes a resting order from the book by ID.
func (b *OrderBook) Cancel(orderID int64) (*Order, bool) {
	order, ok := b.orders[orderID]
	if !ok {
		return nil, false
	}
	tree := b.sideTree(order.Side)
	probe := &priceLevel{price: order.Price}
	level, ok := tree.Get(probe)
	if !ok {
		return nil, false
	}
	for i, o := range level.orders {
		if o.OrderID == orderID {
			level.orders = append(level.orders[:i], level.orders[i+1:]...)
			break
		}
	}
	if len(level.orders) == 0 {
		tree.Delete(level)
	}
	delete(b.orders, orderID)
	return order, true
}

// BestQuote returns the aggregated top-of-book quote for this symbol.
func (b *OrderBook) BestQuote() Quote {
	q := Quote{Symbol: b.Symbol, LastTradePrice: b.lastTradePrice}
	if level, ok := b.bids.Min(); ok {
		q.BidPrice = level.price
		q.BidQuantity = aggregateLevel(level)
	}
	if level, ok := b.asks.Min(); ok {
		q.AskPrice = level.price
		q.AskQuantity = aggregateLevel(level)
	}
	return q
}

// aggregateLevel sums the remaining quantity of every order resting at a
// price level, per spec.md's aggregate_best_level() contract.
func aggregateLevel(level *priceLevel) int64 {
	var total int64
	for _, o := range level.orders {
		total += o.RemainingQuantity
	}
	return total
}

// Depth returns up to `levels` aggregated price levels per side, best
// first.
func (b *OrderBook) Depth(levels int) (bids, asks []PriceLevel) {
	bids = collectLevels(b.bids, levels)
	asks = collectLevels(b.asks, levels)
	return
}

func collectLevels(tree *btree.BTreeG[*priceLevel], levels int) []PriceLevel {
	out := make([]PriceLevel, 0, levels)
	tree.Scan(func(level *priceLevel) bool {
		if len(out) >= levels {
			return false
		}
		out = append(out, PriceLevel{
			Price:    level.price,
			Quantity: aggregateLevel(level),
			Orders:   len(level.orders),
		})
		return true
	})
	return out
}

// recordTrade updates session statistics after a fill.
func (b *OrderBook) recordTrade(t *Trade) {
	b.lastTradePrice = t.Price
	b.totalVolume += t.Quantity
}
