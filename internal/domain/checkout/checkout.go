package checkout

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// Client-facing failure messages.
const (
	MessageInvalidBody      = "Invalid request body."
	MessageMissingFields    = "Missing required fields."
	MessageNoValidItems     = "No valid items in cart."
	MessageProviderDown     = "Could not reach Stripe. Please try again."
	MessageProviderFallback = "Stripe error."
)

var (
	// ErrInvalidBody is returned when the request body is not valid JSON.
	ErrInvalidBody = errors.New("invalid request body")
	// ErrMissingFields is returned when items is not an array or either
	// redirect URL is empty.
	ErrMissingFields = errors.New("missing required fields")
	// ErrNoValidItems is returned when no item carries a price reference and
	// a positive quantity.
	ErrNoValidItems = errors.New("no valid items")
	// ErrProviderUnreachable is returned when the payment provider could not
	// be contacted or answered with something unreadable.
	ErrProviderUnreachable = errors.New("payment provider unreachable")
)

// ProviderError is a non-success answer from the payment provider.
type ProviderError struct {
	StatusCode int
	// Message is the provider's own explanation, possibly empty.
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("payment provider returned %d", e.StatusCode)
	}
	return fmt.Sprintf("payment provider returned %d: %s", e.StatusCode, e.Message)
}

// PublicMessage is the text relayed to the shopper.
func (e *ProviderError) PublicMessage() string {
	if e.Message == "" {
		return MessageProviderFallback
	}
	return e.Message
}

// Item is one requested line: a provider price reference and a quantity.
type Item struct {
	PriceID string
	Qty     int
}

// Valid reports whether the item can be forwarded to the provider.
func (i Item) Valid() bool {
	return i.PriceID != "" && i.Qty > 0
}

// Request is a decoded checkout request. A nil Items means the field was
// absent or not an array; an empty non-nil slice was an empty array.
type Request struct {
	Items      []Item
	SuccessURL string
	CancelURL  string
}

// SessionParams is what the provider needs to create a hosted payment page.
type SessionParams struct {
	LineItems  []Item
	SuccessURL string
	CancelURL  string
}

// Session is a created hosted checkout session.
type Session struct {
	ID  string
	URL string
}

// SessionCreator creates sessions at the payment provider. Implementations
// return *ProviderError for provider rejections and wrap
// ErrProviderUnreachable for transport failures.
type SessionCreator interface {
	CreateSession(ctx context.Context, params SessionParams) (*Session, error)
}
