package contracts

import "time"

// Side represents buy or sell
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Quantity is a tagged order quantity: either a fixed share count or
// "all shares held", resolved against ledger state at fill time.
// ⭐ SSOT: 'ALL' 센티널 대신 이 타입으로만 수량 표현
type Quantity struct {
	shares int
	all    bool
}

// Shares returns a fixed-size quantity. n must be positive to be fillable.
func Shares(n int) Quantity {
	return Quantity{shares: n}
}

// AllHeld returns the quantity that resolves to the full position at fill time.
func AllHeld() Quantity {
	return Quantity{all: true}
}

// IsAll reports whether the quantity is the full-position variant.
func (q Quantity) IsAll() bool {
	return q.all
}

// Resolve converts the quantity to a concrete share count given the
// shares currently held.
func (q Quantity) Resolve(held int) int {
	if q.all {
		return held
	}
	return q.shares
}

// Order is a single instruction from the order generator to the
// execution simulator. Orders are consumed exactly once and never
// persisted or retried.
type Order struct {
	Side   Side
	Ticker string
	Qty    Quantity

	// Audit context, carried through to the trade log.
	Reason    string             // "Buy", "Rebalance", "Stop-Loss", "Take-Profit"
	Score     float64            // composite score at order generation
	Breakdown map[string]float64 // per-provider normalized score
}

// Fill is the result of executing one order. It is applied to the
// ledger immediately and then discarded.
type Fill struct {
	Side       Side
	Ticker     string
	Qty        int
	Price      float64 // slippage-adjusted execution price
	Commission float64
	Date       time.Time // execution day, strictly after the order date
}

// Value returns the gross trade value before commission.
func (f *Fill) Value() float64 {
	return float64(f.Qty) * f.Price
}
