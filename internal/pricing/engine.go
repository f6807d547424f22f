package pricing

// Money represents a monetary value stored in minor units (paisa).
type Money = int64

// Line describes an order line used for total calculation.
type Line struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money
	Total    Money
}

// Compute calculates cart totals in minor units. Lines with a non-positive
// quantity are ignored. The canteen applies no tax or shipping on top of the
// item subtotal, so Total equals Subtotal.
func Compute(lines []Line) Summary {
	var subtotal Money
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		subtotal += Money(l.Qty) * l.UnitPrice
	}
	return Summary{Subtotal: subtotal, Total: subtotal}
}
