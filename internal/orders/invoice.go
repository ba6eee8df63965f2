package orders

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/fjod/natal_store/internal/domain"
)

var invoiceTemplate = template.Must(template.New("invoice").Parse(`<html>
<head>
  <meta charset="utf-8">
  <title>Nota Fiscal - Pedido #{{.ID}}</title>
  <style>
    body { font-family: 'Courier New', Courier, monospace; padding: 20px; color: #333; }
    .header { border-bottom: 2px solid #000; padding-bottom: 20px; margin-bottom: 20px; }
    .row { display: flex; justify-content: space-between; margin-bottom: 10px; }
    .title { font-weight: bold; font-size: 20px; }
    table { width: 100%; border-collapse: collapse; margin-top: 20px; }
    th, td { border: 1px solid #ccc; padding: 8px; text-align: left; }
    .total { font-weight: bold; text-align: right; margin-top: 20px; font-size: 18px; }
    .footer { margin-top: 50px; font-size: 12px; text-align: center; border-top: 1px solid #ccc; padding-top: 10px; }
  </style>
</head>
<body>
  <div class="header">
    <div class="row"><span class="title">NATAL STORE LTDA</span><span>CNPJ: 00.000.000/0001-00</span></div>
    <div class="row"><span>Rua do Papai Noel, 123 - Gramado, RS</span><span>Danfe Simplificado</span></div>
  </div>
  <div class="row"><strong>DESTINATÁRIO</strong></div>
  <div>{{.UserName}}</div>
  <div>{{.UserEmail}}</div>
  <div>{{.ShippingAddress}}</div>
  <table style="margin-bottom: 20px;">
    <tr><th>PEDIDO</th><th>EMISSÃO</th><th>MÉTODO PGTO</th></tr>
    <tr><td>{{.ID}}</td><td>{{.CreatedAt.Format "02/01/2006"}}</td><td>{{.PaymentMethod}}</td></tr>
  </table>
  <table>
    <thead><tr><th>PRODUTO</th><th>QTD</th><th>UNIT (R$)</th><th>TOTAL (R$)</th></tr></thead>
    <tbody>
{{- range .Items}}
      <tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.UnitPrice.StringFixed 2}}</td><td>{{.Subtotal.StringFixed 2}}</td></tr>
{{- end}}
    </tbody>
  </table>
  <div class="total">TOTAL A PAGAR: R$ {{.Total.StringFixed 2}}</div>
  <div class="footer">Documento Auxiliar da Nota Fiscal Eletrônica - Não possui valor fiscal para fins de tributação neste ambiente de demonstração.</div>
  <script>window.print();</script>
</body>
</html>
`))

// RenderInvoice renders the printable simplified invoice of o.
func RenderInvoice(o *domain.Order) ([]byte, error) {
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, o); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", o.ID, err)
	}
	return buf.Bytes(), nil
}

func (s *Service) Invoice(ctx context.Context, id string) ([]byte, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return RenderInvoice(o)
}
