package docflow

import "math"

// Round2 rounds to two decimals, the precision used for all amounts.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// priceTolerance is the negligible price difference ignored by the
// discrepancy detector, half a cent under two-decimal arithmetic.
const priceTolerance = 0.005

// LineField names the editable numeric fields of a line item.
type LineField string

const (
	FieldQuantity  LineField = "quantity"
	FieldUnitPrice LineField = "unit_price"
	FieldLineTotal LineField = "line_total"
)

// ApplyEdit trusts the edited field as entered and recomputes the dependent
// fields so that LineTotal == Round2(Quantity*UnitPrice) holds again.
// Editing the line total keeps the quantity and derives the unit price.
func (li *LineItem) ApplyEdit(field LineField, value float64) {
	switch field {
	case FieldQuantity:
		li.Quantity = value
		li.LineTotal = Round2(li.Quantity * li.UnitPrice)
	case FieldUnitPrice:
		li.UnitPrice = value
		li.LineTotal = Round2(li.Quantity * li.UnitPrice)
	case FieldLineTotal:
		li.LineTotal = value
		if li.Quantity > 0 {
			li.UnitPrice = Round2(value / li.Quantity)
		}
	}
}

// SumLineTotals returns the rounded sum of all line totals.
func SumLineTotals(items []LineItem) float64 {
	var total float64
	for _, li := range items {
		total += li.LineTotal
	}
	return Round2(total)
}

// CloneLineItems copies a line item slice so hand-offs between steps never
// share backing storage.
func CloneLineItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
