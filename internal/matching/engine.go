package matching

import (
	"sync"
	"sync/atomic"

	matcherrors "github.com/abdoElHodaky/matchcore/internal/errors"
	"go.uber.org/zap"
)

// EventSink receives the trades and order-status updates produced by a
// submission, in emission order, for forwarding onto the event bus. The
// engine calls it synchronously while still holding the symbol's book
// lock, so implementations must not block.
type EventSink interface {
	PublishTrade(t *Trade)
	PublishOrderUpdate(u OrderUpdate)
}

// NopSink discards everything; useful for tests that only care about the
// Receipt return value.
type NopSink struct{}

func (NopSink) PublishTrade(*Trade)            {}
func (NopSink) PublishOrderUpdate(OrderUpdate) {}

// bookEntry pairs a book with the mutex that linearizes submissions
// against it (spec.md section 5: single-writer per book).
type bookEntry struct {
	mu   sync.Mutex
	book *OrderBook
}

// Engine owns the registry of per-symbol order books and the global
// order/trade ID counters. It is an explicit context object submitters
// hold a handle to, rather than process-wide singleton state.
type Engine struct {
	logger *zap.Logger

	booksMu sync.RWMutex
	books   map[string]*bookEntry

	nextOrderID atomic.Int64
	nextTradeID atomic.Int64

	halted atomic.Bool

	sink EventSink
}

// NewEngine creates an engine with the given event sink. Pass NopSink{}
// if order updates and trades need not be published anywhere (e.g. tests).
func NewEngine(logger *zap.Logger, sink EventSink) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	return &Engine{
		logger: logger,
		books:  make(map[string]*bookEntry),
		sink:   sink,
	}
}

// Halted reports whether the engine has halted following an invariant
// violation. A halted engine rejects all further submissions with
// RejectEngineHalted rather than risking mutation of a possibly-corrupt
// book.
func (e *Engine) Halted() bool {
	return e.halted.Load()
}

// halt flips the engine into its terminal, submission-rejecting state.
// Called only when a book invariant is found violated mid-match, which
// per spec.md section 7 is a fatal Internal error.
func (e *Engine) halt(reason string, fields ...zap.Field) {
	e.halted.Store(true)
	matchErr := matcherrors.New(matcherrors.Internal, reason)
	e.logger.Error("matching engine halted: invariant violation",
		append(fields, zap.Error(matchErr))...)
}

// entryFor returns the book entry for symbol, lazily creating it.
func (e *Engine) entryFor(symbol string) *bookEntry {
	e.booksMu.RLock()
	entry, ok := e.books[symbol]
	e.booksMu.RUnlock()
	if ok {
		return entry
	}

	e.booksMu.Lock()
	defer e.booksMu.Unlock()
	if entry, ok = e.books[symbol]; ok {
		return entry
	}
	entry = &bookEntry{book: NewOrderBook(symbol, e.logger)}
	e.books[symbol] = entry
	return entry
}

// BestQuote returns the current top-of-book quote for symbol. A symbol
// never traded reports a zero quote; per spec.md section 7 this is not an
// error, just an empty result.
func (e *Engine) BestQuote(symbol string) Quote {
	e.booksMu.RLock()
	entry, ok := e.books[symbol]
	e.booksMu.RUnlock()
	if !ok {
		return Quote{Symbol: symbol}
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.book.BestQuote()
}

// Depth returns aggregated book depth for symbol.
func (e *Engine) Depth(symbol string, levels int) (bids, asks []PriceLevel) {
	e.booksMu.RLock()
	entry, ok := e.books[symbol]
	e.booksMu.RUnlock()
	if !ok {
		return nil, nil
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.book.Depth(levels)
}

// validate performs the synchronous, book-independent rejection checks of
// spec.md section 4.2. It never mutates engine state.
func validate(cmd Command) RejectReason {
	if cmd.Symbol == "" {
		return RejectMissingField
	}
	if cmd.Quantity <= 0 {
		return RejectBadQuantity
	}
	switch cmd.Side {
	case Buy, Sell:
	default:
		return RejectUnknownSide
	}
	switch cmd.Type {
	case Limit, Market:
	default:
		return RejectUnknownType
	}
	switch cmd.TimeInForce {
	case GFD, IOC, FOK:
	default:
		return RejectUnknownTIF
	}
	if cmd.Type == Limit {
		if !cmd.HasPrice || cmd.Price.Sign() <= 0 {
			return RejectBadPrice
		}
	}
	return ""
}

// Submit assigns the command an order ID and timestamp, then matches it
// against the book for its symbol under price-time priority, per the
// algorithm in spec.md section 4.2.
func (e *Engine) Submit(cmd Command) Receipt {
	if reason := validate(cmd); reason != "" {
		return Receipt{Status: StatusRejected, Reject: reason}
	}
	if e.Halted() {
		return Receipt{Status: StatusRejected, Reject: RejectEngineHalted}
	}

	order := &Order{
		UserID:            cmd.UserID,
		Symbol:            cmd.Symbol,
		Side:              cmd.Side,
		Type:              cmd.Type,
		Price:             roundPrice(cmd.Price),
		InitialQuantity:   cmd.Quantity,
		RemainingQuantity: cmd.Quantity,
		TimeInForce:       cmd.TimeInForce,
		Status:            StatusNew,
	}

	entry := e.entryFor(cmd.Symbol)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	// A single monotonic counter space serves both order IDs and the
	// price-time tiebreak timestamp: submissions are already linearized
	// by entry.mu, so the order ID itself is a valid arrival ordinal.
	order.OrderID = e.nextOrderID.Add(1)
	order.Timestamp = order.OrderID

	trades := e.matchAndDispose(entry.book, order)

	e.sink.PublishOrderUpdate(OrderUpdate{
		OrderID:           order.OrderID,
		Status:            order.Status,
		RemainingQuantity: order.RemainingQuantity,
		Timestamp:         order.Timestamp,
	})

	return Receipt{
		OrderID:           order.OrderID,
		Status:            order.Status,
		RemainingQuantity: order.RemainingQuantity,
		Trades:            trades,
	}
}

// matchAndDispose runs the FOK precheck (if applicable), the match loop,
// and the taker's post-match disposition, mutating book in place. Caller
// must hold the book's lock.
func (e *Engine) matchAndDispose(book *OrderBook, order *Order) []*Trade {
	opposite := Sell
	if order.Side == Sell {
		opposite = Buy
	}

	if order.TimeInForce == FOK {
		if !fokSatisfiable(book, order, opposite) {
			order.Status = StatusCancelled
			return nil
		}
	}

	trades := e.matchLoop(book, order, opposite)

	switch {
	case order.RemainingQuantity == 0:
		order.Status = StatusFilled
	case order.TimeInForce == IOC || order.Type == Market:
		if len(trades) == 0 {
			order.Status = StatusCancelled
		} else {
			order.Status = StatusPartiallyFilledCancelled
		}
	default: // GFD LIMIT with leftover quantity rests in the book
		if len(trades) > 0 {
			order.Status = StatusPartiallyFilled
		} else {
			order.Status = StatusNew
		}
		book.Insert(order)
	}

	return trades
}

// fokSatisfiable scans the opposing queue in priority order, accumulating
// matchable quantity without mutating the book, per spec.md section 4.2
// step 4. Scanning stops as soon as either the price bound is exceeded
// (for LIMIT takers) or enough quantity has been seen to satisfy the
// order.
func fokSatisfiable(book *OrderBook, order *Order, opposite Side) bool {
	tree := book.sideTree(opposite)
	var available int64
	tree.Scan(func(level *priceLevel) bool {
		if order.Type == Limit {
			if order.Side == Buy && level.price.GreaterThan(order.Price) {
				return false
			}
			if order.Side == Sell && level.price.LessThan(order.Price) {
				return false
			}
		}
		for _, maker := range level.orders {
			available += maker.RemainingQuantity
			if available >= order.InitialQuantity {
				return false
			}
		}
		return true
	})
	return available >= order.InitialQuantity
}

// matchLoop consumes the opposing book while the taker has remaining
// quantity and a matchable maker exists at the front of the opposing
// queue, emitting one Trade per match and an OrderUpdate for every maker
// it touches (FILLED or PARTIALLY_FILLED). The loop's own price stop conditions are what keep the
// book from ever crossing; see invariant 1 in spec.md section 8.
func (e *Engine) matchLoop(book *OrderBook, order *Order, opposite Side) []*Trade {
	var trades []*Trade

	for order.RemainingQuantity > 0 {
		maker := book.frontMaker(opposite)
		if maker == nil {
			break
		}
		if order.Type == Limit {
			if order.Side == Buy && maker.Price.GreaterThan(order.Price) {
				break
			}
			if order.Side == Sell && maker.Price.LessThan(order.Price) {
				break
			}
		}

		qty := order.RemainingQuantity
		if maker.RemainingQuantity < qty {
			qty = maker.RemainingQuantity
		}

		tradeID := e.nextTradeID.Add(1)
		trade := &Trade{
			TradeID:   tradeID,
			Symbol:    book.Symbol,
			Price:     maker.Price, // maker price always wins, per spec.md section 4.2 step 5
			Quantity:  qty,
			Timestamp: order.Timestamp,
		}
		if order.Side == Buy {
			trade.BuyOrderID = order.OrderID
			trade.SellOrderID = maker.OrderID
		} else {
			trade.BuyOrderID = maker.OrderID
			trade.SellOrderID = order.OrderID
		}

		order.RemainingQuantity -= qty
		maker.RemainingQuantity -= qty
		book.recordTrade(trade)

		trades = append(trades, trade)
		e.sink.PublishTrade(trade)

		if maker.RemainingQuantity == 0 {
			popped := book.popFrontMaker(opposite)
			if popped == nil || popped.OrderID != maker.OrderID {
				e.halt("front maker mismatch during pop", zap.String("symbol", book.Symbol))
				break
			}
			maker.Status = StatusFilled
			e.sink.PublishOrderUpdate(OrderUpdate{
				OrderID:           maker.OrderID,
				Status:            maker.Status,
				RemainingQuantity: 0,
				LastFillQuantity:  qty,
				LastFillPrice:     trade.Price,
				Timestamp:         trade.Timestamp,
			})
		} else {
			maker.Status = StatusPartiallyFilled
			e.sink.PublishOrderUpdate(OrderUpdate{
				OrderID:           maker.OrderID,
				Status:            maker.Status,
				RemainingQuantity: maker.RemainingQuantity,
				LastFillQuantity:  qty,
				LastFillPrice:     trade.Price,
				Timestamp:         trade.Timestamp,
			})
		}
	}

	return trades
}
