package execution

import (
	"math"
	"sort"

	"github.com/wonny/aegis-rotation/internal/contracts"
)

// MinWeightChange is the smallest weight difference worth trading
const MinWeightChange = 0.01

// planned is an order waiting for its price check
type planned struct {
	order   Order
	noPrice bool
}

// planRebalance derives orders from target weights.
// 1. 매도 주문 먼저 (자금 확보), 2. 매수 주문; 각 그룹은 심볼 오름차순
func planRebalance(state contracts.PortfolioState, targets map[string]float64, prices Prices, value float64) []planned {
	var sells, buys []planned

	// 목표에 없는 보유 종목은 전량 매도
	for _, sym := range state.Symbols() {
		h := state.Holdings[sym]
		if _, targeted := targets[sym]; targeted || h.Shares <= 0 {
			continue
		}
		price, ok := prices.Executable(sym)
		sells = append(sells, planned{
			order: Order{
				Symbol:   sym,
				Side:     contracts.ActionSell,
				Quantity: h.Shares,
				Price:    price,
				Reason:   contracts.ReasonRebalance,
			},
			noPrice: !ok,
		})
	}

	targetSymbols := make([]string, 0, len(targets))
	for sym := range targets {
		targetSymbols = append(targetSymbols, sym)
	}
	sort.Strings(targetSymbols)

	for _, sym := range targetSymbols {
		held := state.Holdings[sym].Shares
		current := float64(held) * prices.Valuation(sym) / value
		diff := targets[sym] - current
		if math.Abs(diff) < MinWeightChange {
			continue
		}

		price, ok := prices.Executable(sym)
		if !ok {
			side := contracts.ActionBuy
			if diff < 0 {
				side = contracts.ActionSell
			}
			p := planned{order: Order{Symbol: sym, Side: side, Reason: contracts.ReasonRebalance}, noPrice: true}
			if side == contracts.ActionSell {
				sells = append(sells, p)
			} else {
				buys = append(buys, p)
			}
			continue
		}

		qty := int64(math.Trunc(diff * value / price))
		switch {
		case qty > 0:
			buys = append(buys, planned{order: Order{
				Symbol: sym, Side: contracts.ActionBuy, Quantity: qty, Price: price, Reason: contracts.ReasonRebalance,
			}})
		case qty < 0:
			sellQty := -qty
			if sellQty > held {
				sellQty = held
			}
			if sellQty == 0 {
				continue
			}
			sells = append(sells, planned{order: Order{
				Symbol: sym, Side: contracts.ActionSell, Quantity: sellQty, Price: price, Reason: contracts.ReasonRebalance,
			}})
		}
	}

	sort.SliceStable(sells, func(i, j int) bool { return sells[i].order.Symbol < sells[j].order.Symbol })

	return append(sells, buys...)
}
