package bill

import "github.com/noah-isme/backend-kasir/internal/pricing"

// Line is a single bill entry aggregating every scan of one barcode.
type Line struct {
	Barcode   string        `json:"barcode"`
	Name      string        `json:"name"`
	UnitPrice pricing.Money `json:"unitPrice"`
	Qty       int           `json:"qty"`
}

// Subtotal returns the line amount in minor units.
func (l Line) Subtotal() pricing.Money {
	return pricing.Money(l.Qty) * l.UnitPrice
}

// Ledger aggregates scanned items into insertion-ordered lines, at most one
// line per barcode. The unit price captured on the first scan is sticky for
// the whole session: a promo expiring mid-session does not reprice lines
// already on the bill.
type Ledger struct {
	order []string
	lines map[string]*Line
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{lines: make(map[string]*Line)}
}

// Add records a scan. A repeat barcode increments its quantity; a new one
// appends a fresh line with quantity 1 at the resolved unit price. The
// updated line is returned.
func (g *Ledger) Add(barcode, name string, unitPrice pricing.Money) Line {
	if line, ok := g.lines[barcode]; ok {
		line.Qty++
		return *line
	}
	line := &Line{Barcode: barcode, Name: name, UnitPrice: unitPrice, Qty: 1}
	g.lines[barcode] = line
	g.order = append(g.order, barcode)
	return *line
}

// Total is the exact sum of all line subtotals.
func (g *Ledger) Total() pricing.Money {
	var total pricing.Money
	for _, barcode := range g.order {
		total += g.lines[barcode].Subtotal()
	}
	return total
}

// Change computes change due for a payment, clamped at zero.
func (g *Ledger) Change(payment pricing.Money) pricing.Money {
	return pricing.ChangeDue(g.Total(), payment)
}

// Lines returns a first-scanned-first snapshot of the bill for display.
func (g *Ledger) Lines() []Line {
	out := make([]Line, 0, len(g.order))
	for _, barcode := range g.order {
		out = append(out, *g.lines[barcode])
	}
	return out
}

// Len reports the number of distinct barcodes on the bill.
func (g *Ledger) Len() int {
	return len(g.order)
}
