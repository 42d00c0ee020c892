package cart

import (
	"context"
	"net/url"
	"slices"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Inline checkout error messages.
const (
	MessageCheckoutFailed      = "Something went wrong. Please try again."
	MessageCheckoutUnreachable = "Could not reach checkout. Please try again."
)

var (
	// ErrEmptyCart is returned by Checkout when there is nothing to buy.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCheckoutInFlight is returned by Checkout while an earlier request is
	// still pending.
	ErrCheckoutInFlight = errors.New("checkout already in progress")
)

// CheckoutRequest is the payload sent to the checkout gateway.
type CheckoutRequest struct {
	Items      []LineItem
	SuccessURL string
	CancelURL  string
}

// CheckoutClient creates a hosted checkout session and returns its URL.
type CheckoutClient interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error)
}

// GatewayError is a structured failure reported by the checkout gateway.
// An empty Message means the gateway gave no reason.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string {
	if e.Message == "" {
		return "checkout gateway error"
	}
	return "checkout gateway: " + e.Message
}

// SuccessURL returns the page the provider sends the shopper to after paying.
func SuccessURL(page *url.URL) string {
	u := url.URL{Scheme: page.Scheme, Host: page.Host, Path: "/thankyou"}
	return u.String()
}

// Checkout sends the cart to the gateway and navigates to the returned
// session URL. The cart is left untouched on success. On failure the inline
// error is shown, the control re-enabled and the error returned.
func (s *Store) Checkout(ctx context.Context, page *url.URL) error {
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		return ErrEmptyCart
	}
	if s.control.Disabled {
		s.mu.Unlock()
		return ErrCheckoutInFlight
	}
	s.control = CheckoutControl{Disabled: true, Label: LabelRedirecting}
	req := CheckoutRequest{
		Items:      slices.Clone(s.items),
		SuccessURL: SuccessURL(page),
		CancelURL:  page.String(),
	}
	v := s.snapshot()
	s.mu.Unlock()
	s.publish(v)

	target, err := s.client.CreateCheckout(ctx, req)
	if err == nil && target != "" {
		s.lg.Debug("Redirecting to checkout", zap.Int("items", len(req.Items)))
		s.surface.Navigate(target)
		return nil
	}
	if err == nil {
		err = &GatewayError{}
	}

	s.mu.Lock()
	s.control = CheckoutControl{Label: LabelCheckout, Error: checkoutMessage(err)}
	v = s.snapshot()
	s.mu.Unlock()
	s.publish(v)

	return errors.Wrap(err, "checkout")
}

func checkoutMessage(err error) string {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		if gwErr.Message != "" {
			return gwErr.Message
		}
		return MessageCheckoutFailed
	}
	return MessageCheckoutUnreachable
}
