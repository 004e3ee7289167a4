package execution

import (
	"math"
	"time"

	"github.com/wonny/aegis-rotation/internal/contracts"
	"github.com/wonny/aegis-rotation/pkg/logger"
)

// Config holds simulator cost parameters
type Config struct {
	TransactionCost float64 // 거래비용 비율 (매수/매도 모두)
	MinCashBuffer   float64 // 매수 축소 시 남겨둘 현금 비중
}

// ForcedExit asks for a full liquidation with a risk reason
type ForcedExit struct {
	Symbol string
	Reason contracts.TradeReason
}

// Simulator applies orders to the ledger at the bar's close
// ⭐ SSOT: PortfolioState 변경은 여기서만 (입력 상태는 절대 수정하지 않음)
type Simulator struct {
	cfg    Config
	logger *logger.Logger
}

// NewSimulator creates a new trading simulator
func NewSimulator(cfg Config, log *logger.Logger) *Simulator {
	return &Simulator{
		cfg:    cfg,
		logger: log,
	}
}

// ApplyMarks writes ratcheted high-water marks into a new state
func (s *Simulator) ApplyMarks(state contracts.PortfolioState, marks map[string]float64) contracts.PortfolioState {
	next := state.Clone()
	for sym, hwm := range marks {
		h, ok := next.Holdings[sym]
		if !ok {
			continue
		}
		if hwm > h.HighWaterMark {
			h.HighWaterMark = hwm
			next.Holdings[sym] = h
		}
	}
	return next
}

// Liquidate sells the whole position of every exit, in the given order
func (s *Simulator) Liquidate(state contracts.PortfolioState, exits []ForcedExit, prices Prices, date time.Time) (contracts.PortfolioState, *ExecutionResult) {
	next := state.Clone()
	result := &ExecutionResult{Fills: make([]Fill, 0, len(exits))}

	for _, exit := range exits {
		h := next.Holdings[exit.Symbol]
		price, ok := prices.Executable(exit.Symbol)
		order := Order{
			Symbol:   exit.Symbol,
			Side:     contracts.ActionSell,
			Quantity: h.Shares,
			Price:    price,
			Reason:   exit.Reason,
		}

		switch {
		case h.Shares <= 0:
			result.Fills = append(result.Fills, s.skip(order, SkipNoPosition, date))
		case !ok:
			result.Fills = append(result.Fills, s.skip(order, SkipNoPrice, date))
		default:
			result.Fills = append(result.Fills, s.sell(&next, order, date))
		}
	}

	return next, result
}

// Rebalance moves the ledger toward target weights.
// Portfolio value is taken once before any trade; sells run before buys.
func (s *Simulator) Rebalance(state contracts.PortfolioState, targets map[string]float64, prices Prices, date time.Time) (contracts.PortfolioState, *ExecutionResult) {
	next := state.Clone()
	result := &ExecutionResult{Fills: make([]Fill, 0)}

	value := next.Value(prices.ValuationMap())
	if value <= 0 {
		return next, result
	}

	for _, p := range planRebalance(next, targets, prices, value) {
		if p.noPrice {
			result.Fills = append(result.Fills, s.skip(p.order, SkipNoPrice, date))
			continue
		}

		if p.order.Side == contracts.ActionSell {
			result.Fills = append(result.Fills, s.sell(&next, p.order, date))
		} else {
			result.Fills = append(result.Fills, s.buy(&next, p.order, value, date))
		}
	}

	return next, result
}

// sell executes a sell order against the state in place
func (s *Simulator) sell(state *contracts.PortfolioState, order Order, date time.Time) Fill {
	h := state.Holdings[order.Symbol]
	if order.Quantity > h.Shares {
		order.Quantity = h.Shares
	}
	if order.Quantity <= 0 {
		return s.skip(order, SkipNoPosition, date)
	}

	notional := float64(order.Quantity) * order.Price
	cost := s.cfg.TransactionCost * math.Abs(notional)
	pnl := float64(order.Quantity)*(order.Price-h.EntryPrice) - cost

	realizedReturn := 0.0
	if basis := float64(order.Quantity) * h.EntryPrice; basis > 0 {
		realizedReturn = pnl / basis
	}

	state.Cash += notional - cost
	h.Shares -= order.Quantity
	if h.Shares == 0 {
		delete(state.Holdings, order.Symbol)
	} else {
		state.Holdings[order.Symbol] = h
	}

	return s.filled(order, contracts.TradeRecord{
		Date:           date,
		Symbol:         order.Symbol,
		Action:         contracts.ActionSell,
		Quantity:       order.Quantity,
		Price:          order.Price,
		Cost:           cost,
		Reason:         order.Reason,
		RealizedPnL:    pnl,
		RealizedReturn: realizedReturn,
	})
}

// buy executes a buy order, capping the quantity when cash is short
func (s *Simulator) buy(state *contracts.PortfolioState, order Order, value float64, date time.Time) Fill {
	tc := s.cfg.TransactionCost

	if float64(order.Quantity)*order.Price*(1+tc) > state.Cash {
		available := state.Cash - s.cfg.MinCashBuffer*value
		capped := int64(math.Floor(available / (order.Price * (1 + tc))))

		s.logger.WithFields(map[string]interface{}{
			"symbol":    order.Symbol,
			"requested": order.Quantity,
			"capped":    capped,
			"cash":      state.Cash,
		}).Debug("Buy capped by available cash")

		if capped <= 0 {
			return s.skip(order, SkipInsufficientCash, date)
		}
		order.Quantity = capped
	}

	notional := float64(order.Quantity) * order.Price
	cost := tc * notional
	state.Cash -= notional + cost

	h, held := state.Holdings[order.Symbol]
	if held && h.Shares > 0 {
		total := h.Shares + order.Quantity
		h.EntryPrice = (float64(h.Shares)*h.EntryPrice + notional) / float64(total)
		h.Shares = total
		if order.Price > h.HighWaterMark {
			h.HighWaterMark = order.Price
		}
	} else {
		h = contracts.Holding{Shares: order.Quantity, EntryPrice: order.Price, HighWaterMark: order.Price}
	}
	state.Holdings[order.Symbol] = h

	return s.filled(order, contracts.TradeRecord{
		Date:     date,
		Symbol:   order.Symbol,
		Action:   contracts.ActionBuy,
		Quantity: order.Quantity,
		Price:    order.Price,
		Cost:     cost,
		Reason:   order.Reason,
	})
}

func (s *Simulator) filled(order Order, trade contracts.TradeRecord) Fill {
	s.logger.WithFields(map[string]interface{}{
		"date":     trade.Date.Format("2006-01-02"),
		"symbol":   trade.Symbol,
		"action":   string(trade.Action),
		"quantity": trade.Quantity,
		"price":    trade.Price,
		"reason":   string(trade.Reason),
	}).Debug("Trade executed")

	return Fill{Order: order, Status: StatusFilled, Trade: &trade}
}

func (s *Simulator) skip(order Order, reason string, date time.Time) Fill {
	s.logger.WithFields(map[string]interface{}{
		"date":   date.Format("2006-01-02"),
		"symbol": order.Symbol,
		"side":   string(order.Side),
		"reason": reason,
	}).Warn("Order skipped")

	return Fill{Order: order, Status: StatusSkipped, SkipReason: reason}
}
