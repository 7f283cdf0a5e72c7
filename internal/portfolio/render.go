package portfolio

import (
	"fmt"
	"io"
	"sort"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const (
	tableHeader = "Name                      ISIN            avgCost *   quantity =    buyCost ->   netValue       diff   %-diff"
	tableRule   = "------------------------- ------------ ----------   ----------   ----------    ---------- ---------- -------"
)

// Render writes the fixed-width portfolio table with per-position and
// total figures, followed by the cash and total lines.
func (v *View) Render(w io.Writer) {
	positions := make([]Position, len(v.Positions))
	copy(positions, v.Positions)
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].NetSize.GreaterThan(positions[j].NetSize)
	})

	fmt.Fprintf(w, "%s\n", tableHeader)
	fmt.Fprintln(w, tableRule)

	totalBuyCost := decimal.Zero
	totalNetValue := decimal.Zero
	for _, pos := range positions {
		buyCost := pos.BuyCost()
		diff := pos.NetValue.Sub(buyCost)
		totalBuyCost = totalBuyCost.Add(buyCost)
		totalNetValue = totalNetValue.Add(pos.NetValue)

		name := pos.Name
		if len(name) > 25 {
			name = name[:25]
		}
		fmt.Fprintf(w, "%-25s %12s %10.2f * %10.2f = %10.2f -> %10.2f %10.2f %6.1f%%\n",
			name, pos.ISIN,
			pos.AverageBuyIn.InexactFloat64(), pos.NetSize.InexactFloat64(),
			buyCost.InexactFloat64(), pos.NetValue.InexactFloat64(),
			diff.InexactFloat64(), percentDiff(pos.NetValue, buyCost))
	}

	fmt.Fprintln(w, tableRule)
	fmt.Fprintf(w, "%s\n", tableHeader)
	fmt.Fprintln(w)

	diff := totalNetValue.Sub(totalBuyCost)
	fmt.Fprintf(w, "Depot %43.2f -> %10.2f %10.2f %6.1f%%\n",
		totalBuyCost.InexactFloat64(), totalNetValue.InexactFloat64(),
		diff.InexactFloat64(), percentDiff(totalNetValue, totalBuyCost))

	totalCash := decimal.Zero
	for _, c := range v.Cash {
		totalCash = totalCash.Add(c.Amount)
		fmt.Fprintf(w, "Cash %44s -> %10s\n", displayMoney(c), displayMoney(c))
	}
	fmt.Fprintf(w, "Total %43.2f -> %10.2f\n",
		totalCash.Add(totalBuyCost).InexactFloat64(),
		totalCash.Add(totalNetValue).InexactFloat64())
}

func percentDiff(netValue, buyCost decimal.Decimal) float64 {
	if buyCost.IsZero() {
		return 0
	}
	return netValue.Div(buyCost).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

func displayMoney(c CashBalance) string {
	minor := c.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return money.New(minor, c.Currency).Display()
}
