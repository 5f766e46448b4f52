// Package ticksize floors prices to the minimum increment an exchange
// accepts. Each venue publishes a price-magnitude bracket table; the
// algorithm is the same for all of them: pick the bracket, truncate toward
// zero to its tick.
package ticksize

import "github.com/shopspring/decimal"

type bracket struct {
	below float64 // bracket applies to prices strictly below this bound
	tick  float64
}

// Table is an ordered bracket list; the last entry catches everything above
// the previous bound.
type Table []bracket

// Bithumb is the KRW spot price unit table.
var Bithumb = Table{
	{1, 0.00001},
	{10, 0.001},
	{100, 0.01},
	{5000, 1},
	{10000, 5},
	{50000, 10},
	{100000, 50},
	{500000, 100},
	{1000000, 500},
	{0, 1000},
}

// Bitget is the USDT futures price unit table.
var Bitget = Table{
	{1, 0.0001},
	{10, 0.001},
	{100, 0.01},
	{0, 1},
}

// Floor truncates price toward zero to the tick of its magnitude bracket.
// The computation runs in decimal space so sub-unit ticks stay exact.
func (t Table) Floor(price float64) float64 {
	if price <= 0 {
		return 0
	}
	tick := decimal.NewFromFloat(t.tickFor(price))
	p := decimal.NewFromFloat(price)
	floored, _ := p.Div(tick).Floor().Mul(tick).Float64()
	return floored
}

func (t Table) tickFor(price float64) float64 {
	for _, b := range t {
		if b.below > 0 && price < b.below {
			return b.tick
		}
	}
	return t[len(t)-1].tick
}
