// Package client calls the storefront checkout endpoint on behalf of the cart.
package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/unseelie-shop/internal/domain/cart"
)

const (
	checkoutPath    = "/api/checkout"
	maxResponseSize = 64 << 10
	defaultTimeout  = 15 * time.Second
)

var _ cart.CheckoutClient = (*Checkout)(nil)

// Checkout is a cart.CheckoutClient for POST /api/checkout.
type Checkout struct {
	endpoint string
	http     *http.Client
}

// Option configures Checkout.
type Option func(c *Checkout)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Checkout) {
		c.http = hc
	}
}

// NewCheckout returns a client for the storefront rooted at baseURL.
func NewCheckout(baseURL string, opts ...Option) (*Checkout, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Checkout{
		endpoint: strings.TrimSuffix(baseURL, "/") + checkoutPath,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   defaultTimeout,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// EncodeRequest renders the checkout body. Every line item is sent; items
// without a price reference carry null and are filtered by the gateway.
func EncodeRequest(req cart.CheckoutRequest) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range req.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("stripePriceId", func(e *jx.Encoder) {
							if it.StripePriceID == "" {
								e.Null()
								return
							}
							e.Str(it.StripePriceID)
						})
						e.Field("qty", func(e *jx.Encoder) { e.Int(it.Qty) })
					})
				}
			})
		})
		e.Field("successUrl", func(e *jx.Encoder) { e.Str(req.SuccessURL) })
		e.Field("cancelUrl", func(e *jx.Encoder) { e.Str(req.CancelURL) })
	})
	return e.Bytes()
}

// CreateCheckout posts the cart and returns the hosted session URL. A body
// without a URL becomes *cart.GatewayError carrying its "error" message, if
// any. Transport failures and unreadable bodies are returned as plain errors.
func (c *Checkout) CreateCheckout(ctx context.Context, req cart.CheckoutRequest) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(EncodeRequest(req)))
	if err != nil {
		return "", errors.Wrap(err, "create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "send checkout request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", errors.Wrap(err, "read checkout response")
	}
	target, message, err := decodeResponse(body)
	if err != nil {
		return "", errors.Wrapf(err, "decode checkout response (status %d)", resp.StatusCode)
	}
	if target != "" {
		return target, nil
	}
	return "", &cart.GatewayError{Message: message}
}

func decodeResponse(body []byte) (target, message string, err error) {
	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return "", "", errors.New("response is not an object")
	}
	err = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "url":
			return readString(d, &target)
		case "error":
			return readString(d, &message)
		default:
			return d.Skip()
		}
	})
	return target, message, err
}

// readString stores a string value; other types are skipped.
func readString(d *jx.Decoder, dst *string) error {
	if d.Next() != jx.String {
		return d.Skip()
	}
	s, err := d.Str()
	if err != nil {
		return err
	}
	*dst = s
	return nil
}
