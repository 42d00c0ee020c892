// Package checkout validates checkout requests and turns them into hosted
// payment sessions.
package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Session outcomes recorded on the checkout.sessions counter.
const (
	OutcomeCreated       = "created"
	OutcomeRejected      = "rejected"
	OutcomeProviderError = "provider_error"
	OutcomeUnreachable   = "unreachable"
)

// Service is the stateless checkout gateway.
type Service struct {
	sessions SessionCreator
	counter  metric.Int64Counter
}

// NewService creates a checkout Service backed by the given provider.
func NewService(sessions SessionCreator, meter metric.Meter) (*Service, error) {
	counter, err := meter.Int64Counter("checkout.sessions",
		metric.WithDescription("Checkout session attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create counter")
	}
	return &Service{
		sessions: sessions,
		counter:  counter,
	}, nil
}

// Validate checks required fields and returns the forwardable items in
// request order.
func Validate(req Request) ([]Item, error) {
	if req.Items == nil || req.SuccessURL == "" || req.CancelURL == "" {
		return nil, ErrMissingFields
	}
	valid := make([]Item, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Valid() {
			valid = append(valid, it)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoValidItems
	}
	return valid, nil
}

// CreateSession validates req, drops unusable items and asks the provider for
// a hosted payment session. Nothing is retried.
func (s *Service) CreateSession(ctx context.Context, req Request) (*Session, error) {
	lg := zctx.From(ctx)

	items, err := Validate(req)
	if err != nil {
		s.record(ctx, OutcomeRejected)
		return nil, err
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("checkout.line_items", len(items)),
		attribute.Int("checkout.dropped_items", len(req.Items)-len(items)),
	)

	sess, err := s.sessions.CreateSession(ctx, SessionParams{
		LineItems:  items,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		var provErr *ProviderError
		if errors.As(err, &provErr) {
			s.record(ctx, OutcomeProviderError)
			lg.Warn("Payment provider rejected session",
				zap.Int("status", provErr.StatusCode),
				zap.String("reason", provErr.Message),
			)
			return nil, err
		}
		s.record(ctx, OutcomeUnreachable)
		lg.Error("Payment provider unreachable", zap.Error(err))
		return nil, errors.Wrap(err, "create session")
	}

	s.record(ctx, OutcomeCreated)
	lg.Info("Checkout session created",
		zap.String("session_id", sess.ID),
		zap.Int("line_items", len(items)),
	)
	return sess, nil
}

func (s *Service) record(ctx context.Context, outcome string) {
	s.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
