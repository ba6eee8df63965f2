package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// Gateway is the simulated card/Pix processor. Calls go through a circuit
// breaker; declines are answers, not failures, and do not trip it.
type Gateway struct {
	approver Approver
	breaker  *gobreaker.CircuitBreaker[*Result]
	timeout  time.Duration
}

func NewGateway(approver Approver, timeout time.Duration) *Gateway {
	return &Gateway{
		approver: approver,
		breaker:  newBreaker("payment-gateway"),
		timeout:  timeout,
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker[*Result] {
	var st gobreaker.Settings
	st.Name = name
	st.Timeout = 30 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 3 && failureRatio >= 0.6
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().Str("component", "payment").Str("breaker", name).
			Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
	}
	return gobreaker.NewCircuitBreaker[*Result](st)
}

func (g *Gateway) Charge(ctx context.Context, c Charge) (*Result, error) {
	if !c.Method.Valid() {
		return nil, ErrInvalidMethod
	}
	if !c.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	result, err := g.breaker.Execute(func() (*Result, error) {
		return g.process(ctx, c)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrUnavailable.Wrap(err)
		}
		return nil, fmt.Errorf("charge %s: %w", c.Reference, err)
	}

	log.Ctx(ctx).Info().
		Str("reference", c.Reference).
		Str("transaction_id", result.TransactionID).
		Str("method", string(c.Method)).
		Str("amount", c.Amount.StringFixed(2)).
		Str("status", string(result.Status)).
		Str("refusal", result.Refusal.String()).
		Msg("payment processed")
	return result, nil
}

func (g *Gateway) process(ctx context.Context, c Charge) (*Result, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	status, refusal := g.approver.Decide(c)
	return &Result{
		TransactionID: "TXN-" + uuid.NewString(),
		Status:        status,
		Refusal:       refusal,
	}, nil
}

// Refund always succeeds on the simulated gateway.
func (g *Gateway) Refund(ctx context.Context, transactionID string) error {
	log.Ctx(ctx).Info().Str("transaction_id", transactionID).Msg("payment refunded")
	return nil
}
