package notify

import (
	"bytes"
	htmltemplate "html/template"
	"text/template"

	"github.com/pkg/errors"

	"github.com/imrishuroy/go-storefront/internal/aws"
	"github.com/imrishuroy/go-storefront/internal/money"
)

var funcs = map[string]interface{}{"money": money.Format}

const confirmationText = `Thanks for your order!

Order {{.OrderNumber}}
{{range .Items}}
  {{.Quantity}} x {{.Name}}  {{money .LineTotalCents}}{{end}}

Subtotal: {{money .SubtotalCents}}
{{- if gt .DiscountCents 0}}
Discount{{if .CouponCode}} ({{.CouponCode}}){{end}}: -{{money .DiscountCents}}{{end}}
Shipping{{if .ShippingMethod}} ({{.ShippingMethod}}){{end}}: {{money .ShippingCents}}
Total: {{money .TotalCents}}

Shipping to:
{{with .ShippingAddress}}{{.Name}}
{{.Line1}}{{if .Line2}}
{{.Line2}}{{end}}
{{.City}}{{if .State}}, {{.State}}{{end}} {{.PostalCode}}
{{.Country}}{{end}}
`

const confirmationHTML = `<h1>Thanks for your order!</h1>
<p>Order <strong>{{.OrderNumber}}</strong></p>
<table>
{{range .Items}}<tr><td>{{.Quantity}} &times; {{.Name}}</td><td>{{money .LineTotalCents}}</td></tr>
{{end}}<tr><td>Subtotal</td><td>{{money .SubtotalCents}}</td></tr>
{{if gt .DiscountCents 0}}<tr><td>Discount{{if .CouponCode}} ({{.CouponCode}}){{end}}</td><td>-{{money .DiscountCents}}</td></tr>
{{end}}<tr><td>Shipping</td><td>{{money .ShippingCents}}</td></tr>
<tr><td><strong>Total</strong></td><td><strong>{{money .TotalCents}}</strong></td></tr>
</table>
{{with .ShippingAddress}}<p>{{.Name}}<br>{{.Line1}}<br>{{if .Line2}}{{.Line2}}<br>{{end}}{{.City}}{{if .State}}, {{.State}}{{end}} {{.PostalCode}}<br>{{.Country}}</p>{{end}}
`

var (
	textTmpl = template.Must(template.New("confirmation.txt").Funcs(funcs).Parse(confirmationText))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("confirmation.html").Funcs(funcs).Parse(confirmationHTML))
)

// Render turns a queue message into an email.
func Render(m Message) (aws.Email, error) {
	if m.Kind != KindOrderConfirmation {
		return aws.Email{}, errors.Errorf("unknown message kind %q", m.Kind)
	}
	if m.To == "" {
		return aws.Email{}, errors.Errorf("message for order %s has no recipient", m.OrderID)
	}
	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, m); err != nil {
		return aws.Email{}, errors.Wrap(err, "render text body")
	}
	if err := htmlTmpl.Execute(&html, m); err != nil {
		return aws.Email{}, errors.Wrap(err, "render html body")
	}
	return aws.Email{
		To:      m.To,
		Subject: "Order confirmation " + m.OrderNumber,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
