// Package invoice holds the pure parts of invoicing: amount math, numbering
// and HTML rendering.
package invoice

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Amounts is the monetary breakdown printed on an invoice.
type Amounts struct {
	HT      float64
	VATRate float64
	TVA     float64
	TTC     float64
}

var hundred = decimal.NewFromInt(100)

// CalculateAmounts derives the VAT and gross amounts from a net price. Each
// figure is rounded to cents on its own, so TTC can differ from HT+TVA by one
// cent.
func CalculateAmounts(priceHT, vatRate float64) Amounts {
	ht := decimal.NewFromFloat(priceHT)
	rate := decimal.NewFromFloat(vatRate)
	tva := ht.Mul(rate).Div(hundred)

	return Amounts{
		HT:      ht.Round(2).InexactFloat64(),
		VATRate: vatRate,
		TVA:     tva.Round(2).InexactFloat64(),
		TTC:     ht.Add(tva).Round(2).InexactFloat64(),
	}
}

// FormatNumber builds an invoice number of the form INV-YYYYMM-000042. The
// suffix is zero-padded to six digits and widens past 999999 so numbers stay
// unique across the whole sequence.
func FormatNumber(issued time.Time, seq int64) string {
	return fmt.Sprintf("INV-%s-%06d", issued.UTC().Format("200601"), seq)
}
