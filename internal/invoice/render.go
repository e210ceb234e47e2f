package invoice

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Document is everything printed on an invoice.
type Document struct {
	Number        string
	IssuedAt      time.Time
	PaidAt        time.Time
	SellerName    string
	SellerAddress string
	SellerVATID   string
	CustomerName  string
	CustomerEmail string
	Description   string
	Currency      string
	Amounts       Amounts
}

var documentTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"money": FormatMoney,
	"date":  func(t time.Time) string { return t.UTC().Format("02/01/2006") },
	"pct":   func(f float64) string { return decimal.NewFromFloat(f).String() },
}).Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<title>Facture {{.Number}}</title>
<style>
body{font-family:Helvetica,Arial,sans-serif;color:#1f2937;margin:40px}
h1{font-size:24px;margin:0 0 4px}
table{width:100%;border-collapse:collapse;margin-top:24px}
th,td{padding:8px;border-bottom:1px solid #e5e7eb;text-align:left}
td.num,th.num{text-align:right}
.totals td{border:none}
.muted{color:#6b7280;font-size:13px}
</style>
</head>
<body>
<h1>Facture {{.Number}}</h1>
<p class="muted">Émise le {{date .IssuedAt}} · Payée le {{date .PaidAt}}</p>
<table>
<tr>
<td><strong>{{.SellerName}}</strong>{{if .SellerAddress}}<br>{{.SellerAddress}}{{end}}{{if .SellerVATID}}<br>TVA : {{.SellerVATID}}{{end}}</td>
<td><strong>{{.CustomerName}}</strong><br>{{.CustomerEmail}}</td>
</tr>
</table>
<table>
<tr><th>Description</th><th class="num">Montant HT</th></tr>
<tr><td>{{.Description}}</td><td class="num">{{money .Amounts.HT .Currency}}</td></tr>
</table>
<table class="totals">
<tr><td class="num">Total HT</td><td class="num">{{money .Amounts.HT .Currency}}</td></tr>
<tr><td class="num">TVA ({{pct .Amounts.VATRate}} %)</td><td class="num">{{money .Amounts.TVA .Currency}}</td></tr>
<tr><td class="num"><strong>Total TTC</strong></td><td class="num"><strong>{{money .Amounts.TTC .Currency}}</strong></td></tr>
</table>
<p class="muted">Facture acquittée.</p>
</body>
</html>
`))

// Render produces the HTML body stored and served for an invoice.
func Render(doc Document) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("render invoice %s: %w", doc.Number, err)
	}
	return buf.String(), nil
}

// FormatMoney prints amount the French way, e.g. "71,99 €".
func FormatMoney(amount float64, currency string) string {
	s := decimal.NewFromFloat(amount).StringFixed(2)
	s = strings.Replace(s, ".", ",", 1)
	switch strings.ToUpper(currency) {
	case "", "EUR":
		return s + " €"
	default:
		return s + " " + strings.ToUpper(currency)
	}
}
