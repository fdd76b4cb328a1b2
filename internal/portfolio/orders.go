package portfolio

import (
	"math"
	"time"

	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/internal/cost"
)

// Execution is the liquidity-adjusted result of moving from prior to target
type Execution struct {
	Weights   contracts.WeightVector    // 체결 후 비중 (잔여 = 현금)
	Trades    []contracts.TradeLogEntry // HOLD 제외
	Unchecked int                       // 거래량 미상으로 유동성 검증을 생략한 주문 수
}

// SizeOrders converts weight changes into notional orders against capital and
// enforces the model's liquidity cap using the last observable bar.
// Oversized orders are scaled to the cap; orders with no capacity are rejected.
// Buys without an observable bar are rejected, sells are filled.
// A bar with unknown volume fills the order unchecked and counts it.
// capital <= 0 disables liquidity checks.
func SizeOrders(date time.Time, prior, target contracts.WeightVector, prices *contracts.PricePanel, capital float64, model cost.Model) Execution {
	executed := make(contracts.WeightVector)
	var trades []contracts.TradeLogEntry
	unchecked := 0

	for _, id := range contracts.Union(prior, target) {
		from, to := prior[id], target[id]
		action := contracts.ActionFor(from, to)
		if action == contracts.ActionHold {
			if to > 0 {
				executed[id] = to
			}
			continue
		}

		delta := to - from
		notional := math.Abs(delta) * capital
		status := contracts.OrderFilled
		filled := delta

		if capital > 0 {
			bar, ok := prices.Latest(id)
			switch {
			case !ok && action == contracts.ActionBuy:
				status, filled = contracts.OrderRejected, 0
			case !ok:
				// 가격 정보 없는 매도는 그대로 체결
			case !bar.HasVolume():
				unchecked++
			default:
				limit := model.LiquidityCap(bar.Volume, bar.Close)
				if !model.LiquidityOK(notional, bar.Volume, bar.Close) {
					if limit > 0 {
						status = contracts.OrderScaled
						filled = math.Copysign(limit/capital, delta)
					} else {
						status, filled = contracts.OrderRejected, 0
					}
				}
			}
		}

		if w := from + filled; w > 0 {
			executed[id] = w
		}

		trades = append(trades, contracts.TradeLogEntry{
			Date:         contracts.Day(date),
			InstrumentID: id,
			Action:       action,
			PriorWeight:  from,
			TargetWeight: to,
			FilledWeight: from + filled,
			Notional:     math.Abs(filled) * capital,
			Status:       status,
		})
	}

	// 매도 미체결로 합계가 1을 넘으면 비례 축소
	if executed.Sum() > 1 {
		executed = scaleToOne(executed)
	}

	return Execution{Weights: executed, Trades: trades, Unchecked: unchecked}
}
