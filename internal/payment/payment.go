// Package payment charges orders through a simulated gateway and keeps the
// shop's receiving accounts.
package payment

import (
	"math/rand"

	"github.com/fjod/natal_store/internal/apperr"
	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodPix    Method = "Pix"
	MethodCard   Method = "Cartão de Crédito"
	MethodBoleto Method = "Boleto"
)

func (m Method) Valid() bool {
	switch m {
	case MethodPix, MethodCard, MethodBoleto:
		return true
	}
	return false
}

type Status string

const (
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

type Refusal int

const (
	RefusalUnknown Refusal = iota
	RefusalInsufficientFunds
	RefusalExpiredCard
	RefusalSuspectedFraud
	RefusalLimitExceeded
	RefusalInvalidData
)

func (r Refusal) String() string {
	switch r {
	case RefusalInsufficientFunds:
		return "insufficient_funds"
	case RefusalExpiredCard:
		return "expired_card"
	case RefusalSuspectedFraud:
		return "suspected_fraud"
	case RefusalLimitExceeded:
		return "limit_exceeded"
	case RefusalInvalidData:
		return "invalid_data"
	default:
		return "unknown"
	}
}

var (
	ErrDeclined      = apperr.New(apperr.KindPaymentRequired, "payment_declined", "Pagamento recusado.")
	ErrUnavailable   = apperr.New(apperr.KindUnavailable, "payment_unavailable", "Pagamento indisponível no momento. Tente novamente em instantes.")
	ErrInvalidMethod = apperr.Invalid("invalid_payment_method", "Forma de pagamento inválida.")
	ErrInvalidAmount = apperr.Invalid("invalid_amount", "Valor de pagamento inválido.")
)

type Charge struct {
	Reference string
	Amount    decimal.Decimal
	Method    Method
	Customer  string
}

type Result struct {
	TransactionID string
	Status        Status
	Refusal       Refusal
}

func (r *Result) Approved() bool {
	return r.Status == StatusApproved
}

// Approver decides the outcome of a simulated charge.
type Approver interface {
	Decide(c Charge) (Status, Refusal)
}

type AlwaysApprove struct{}

func (AlwaysApprove) Decide(Charge) (Status, Refusal) {
	return StatusApproved, RefusalUnknown
}

// RandomApprover approves 95% of charges and spreads the rest evenly over
// the known refusal reasons.
type RandomApprover struct {
	intn func(n int) int
}

func NewRandomApprover() RandomApprover {
	return RandomApprover{intn: rand.Intn}
}

func (r RandomApprover) Decide(Charge) (Status, Refusal) {
	return decide(r.intn(100))
}

// decide maps n in [0, 100) to an outcome: 0-94 approve, 95-99 decline with
// one refusal reason each.
func decide(n int) (Status, Refusal) {
	switch {
	case n >= 0 && n < 95:
		return StatusApproved, RefusalUnknown
	case n >= 95 && n < 100:
		return StatusDeclined, Refusal(n - 94)
	}
	return StatusDeclined, RefusalUnknown
}

// NewApprover maps the PAYMENT_APPROVAL setting to an Approver.
func NewApprover(mode string) Approver {
	if mode == "random" {
		return NewRandomApprover()
	}
	return AlwaysApprove{}
}
