package email

import (
	"bytes"
	"fmt"
	"html/template"
)

var invoiceTemplate = template.Must(template.New("invoice_ready").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Votre facture {{.InvoiceNumber}}</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; padding: 0; background-color: #f5f5f5;">
<table role="presentation" style="width: 100%; border: 0;">
<tr><td style="padding: 40px 0; text-align: center;">
<table role="presentation" style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; box-shadow: 0 1px 3px rgba(0,0,0,0.1);">
<tr><td style="padding: 32px 40px; text-align: center;">
<h1 style="margin: 0 0 16px; font-size: 22px; color: #1a1a1a;">Merci pour votre paiement</h1>
<p style="margin: 0 0 24px; color: #666; font-size: 15px; line-height: 1.5;">
Bonjour {{.GarageName}}, votre facture <strong>{{.InvoiceNumber}}</strong> d'un montant de <strong>{{.AmountTTC}}</strong> est disponible.
</p>
<a href="{{.InvoiceURL}}" style="display: inline-block; padding: 12px 32px; background: #2563eb; color: #ffffff; text-decoration: none; border-radius: 6px; font-size: 15px;">
Voir la facture
</a>
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>`))

// InvoiceReadyData holds template data for the invoice notification email.
type InvoiceReadyData struct {
	GarageName    string
	InvoiceNumber string
	AmountTTC     string
	InvoiceURL    string
}

// RenderInvoiceReadyEmail renders the subject, HTML and text bodies of the
// invoice notification.
func RenderInvoiceReadyEmail(data InvoiceReadyData) (subject, html, text string, err error) {
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("render invoice email template: %w", err)
	}
	subject = fmt.Sprintf("Votre facture %s", data.InvoiceNumber)
	text = fmt.Sprintf("Bonjour %s,\n\nVotre facture %s d'un montant de %s est disponible : %s\n",
		data.GarageName, data.InvoiceNumber, data.AmountTTC, data.InvoiceURL)
	return subject, buf.String(), text, nil
}
