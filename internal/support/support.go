// Package support serves the help widget content.
package support

import "strings"

const (
	Greeting     = "Olá! Bem-vindo à Natal Store. Como posso ajudar você hoje?"
	WhatsAppURL  = "https://wa.me/5554999999999"
	HumanSupport = "Falar com Atendente Humano"
)

type Entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Contact struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type Content struct {
	Greeting string  `json:"greeting"`
	FAQ      []Entry `json:"faq"`
	Contact  Contact `json:"contact"`
}

var faq = []Entry{
	{
		Question: "Qual o prazo de entrega?",
		Answer:   "O prazo médio é de 3 a 7 dias úteis para Sul e Sudeste, e 7 a 15 dias para demais regiões.",
	},
	{
		Question: "Como rastrear meu pedido?",
		Answer:   "Assim que seu pedido for despachado, enviaremos o código de rastreio para seu e-mail cadastrado.",
	},
	{
		Question: "Formas de pagamento?",
		Answer:   "Aceitamos Pix (5% off), Cartão de Crédito em até 12x e Boleto Bancário.",
	},
}

// Widget returns a copy of the help widget content.
func Widget() Content {
	return Content{
		Greeting: Greeting,
		FAQ:      append([]Entry(nil), faq...),
		Contact:  Contact{Label: HumanSupport, URL: WhatsAppURL},
	}
}

// Answer finds the canned answer for one of the FAQ questions.
func Answer(question string) (Entry, bool) {
	q := strings.TrimSpace(question)
	for _, e := range faq {
		if strings.EqualFold(e.Question, q) {
			return e, true
		}
	}
	return Entry{}, false
}
