package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/fjod/natal_store/internal/domain"
)

func VerificationEmail(to, name, code string) Message {
	text := fmt.Sprintf("Olá, %s!\n\nSeu código de verificação da Natal Store é: %s\n\nO código expira em 10 minutos.", name, code)
	return Message{
		To:       to,
		Subject:  "Natal Store - Código de verificação",
		TextBody: text,
		HTMLBody: fmt.Sprintf("<p>Olá, %s!</p><p>Seu código de verificação é <strong>%s</strong>.</p><p>O código expira em 10 minutos.</p>",
			template.HTMLEscapeString(name), code),
	}
}

// VerificationSMS is the text sent to the phone during registration.
func VerificationSMS(code string) string {
	return fmt.Sprintf("Natal Store: seu código de verificação é %s", code)
}

func PasswordResetEmail(to, name, link string) Message {
	return Message{
		To:       to,
		Subject:  "Natal Store - Redefinição de senha",
		TextBody: fmt.Sprintf("Olá, %s!\n\nPara redefinir sua senha acesse:\n%s\n\nSe você não solicitou, ignore este e-mail.", name, link),
		HTMLBody: fmt.Sprintf(`<p>Olá, %s!</p><p><a href="%s">Clique aqui para redefinir sua senha</a>.</p><p>Se você não solicitou, ignore este e-mail.</p>`,
			template.HTMLEscapeString(name), template.HTMLEscapeString(link)),
	}
}

var orderTemplate = template.Must(template.New("order").Parse(`<h2>Olá, {{.UserName}}!</h2>
<p>Recebemos seu pedido <strong>#{{.ShortID}}</strong>. Status: {{.Status}}.</p>
<table>
{{range .Items}}<tr><td>{{.Quantity}}x</td><td>{{.Name}}</td><td>R$ {{.Subtotal.StringFixed 2}}</td></tr>
{{end}}</table>
<p>Frete: R$ {{.Shipping.StringFixed 2}}<br>Total: <strong>R$ {{.Total.StringFixed 2}}</strong></p>
<p>Entrega em: {{.ShippingAddress}}</p>`))

type orderView struct {
	*domain.Order
	ShortID string
}

// OrderConfirmationEmail summarises a newly placed order.
func OrderConfirmationEmail(order *domain.Order) (Message, error) {
	var buf bytes.Buffer
	if err := orderTemplate.Execute(&buf, orderView{Order: order, ShortID: order.ShortID()}); err != nil {
		return Message{}, fmt.Errorf("render order email: %w", err)
	}
	return Message{
		To:       order.UserEmail,
		Subject:  fmt.Sprintf("Natal Store - Pedido #%s confirmado", order.ShortID()),
		HTMLBody: buf.String(),
		TextBody: fmt.Sprintf("Olá, %s! Seu pedido #%s no valor de R$ %s foi confirmado.",
			order.UserName, order.ShortID(), order.Total.StringFixed(2)),
	}, nil
}

func OrderStatusEmail(order *domain.Order) Message {
	text := fmt.Sprintf("Olá, %s! O status do seu pedido #%s mudou para: %s.", order.UserName, order.ShortID(), order.Status)
	return Message{
		To:       order.UserEmail,
		Subject:  fmt.Sprintf("Natal Store - Pedido #%s: %s", order.ShortID(), order.Status),
		TextBody: text,
		HTMLBody: "<p>" + template.HTMLEscapeString(text) + "</p>",
	}
}
