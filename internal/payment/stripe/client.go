// Package stripe creates hosted checkout sessions through the Stripe REST API.
package stripe

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/unseelie-shop/internal/domain/checkout"
)

// DefaultBaseURL is the production Stripe API root.
const DefaultBaseURL = "https://api.stripe.com"

const (
	sessionsPath    = "/v1/checkout/sessions"
	maxResponseSize = 1 << 20
)

// Compile-time check ensuring Client satisfies checkout.SessionCreator.
var _ checkout.SessionCreator = (*Client)(nil)

// Config configures a Client.
type Config struct {
	// SecretKey authenticates every request. It is never logged.
	SecretKey string
	// BaseURL overrides DefaultBaseURL, e.g. for stripe-mock.
	BaseURL string
	// Timeout bounds a single session request. Zero means no timeout.
	Timeout time.Duration

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	// Transport is the underlying round tripper, http.DefaultTransport when nil.
	Transport http.RoundTripper
}

// Client talks to the Checkout Sessions endpoint.
type Client struct {
	secretKey string
	endpoint  string
	http      *http.Client
}

// NewClient validates cfg and builds an instrumented Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	var opts []otelhttp.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	if cfg.MeterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(cfg.MeterProvider))
	}

	return &Client{
		secretKey: cfg.SecretKey,
		endpoint:  strings.TrimSuffix(base, "/") + sessionsPath,
		http: &http.Client{
			Transport: otelhttp.NewTransport(transport, opts...),
			Timeout:   cfg.Timeout,
		},
	}, nil
}

// SessionForm encodes params as the form body Stripe expects for a one-off
// payment session.
func SessionForm(params checkout.SessionParams) url.Values {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	for i, li := range params.LineItems {
		prefix := "line_items[" + strconv.Itoa(i) + "]"
		form.Set(prefix+"[price]", li.PriceID)
		form.Set(prefix+"[quantity]", strconv.Itoa(li.Qty))
	}
	return form
}

// CreateSession posts a new checkout session. Provider rejections come back
// as *checkout.ProviderError; network failures and unreadable answers wrap
// checkout.ErrProviderUnreachable.
func (c *Client) CreateSession(ctx context.Context, params checkout.SessionParams) (*checkout.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(SessionForm(params).Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(checkout.ErrProviderUnreachable, "post session: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrapf(checkout.ErrProviderUnreachable, "read response: %v", err)
	}
	parsed, err := decodeResponse(body)
	if err != nil {
		return nil, errors.Wrapf(checkout.ErrProviderUnreachable, "decode response: %v", err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok || parsed.URL == "" {
		return nil, &checkout.ProviderError{
			StatusCode: resp.StatusCode,
			Message:    parsed.ErrorMessage,
		}
	}
	return &checkout.Session{ID: parsed.ID, URL: parsed.URL}, nil
}

type response struct {
	ID           string
	URL          string
	ErrorMessage string
}

// decodeResponse extracts the fields of either a session object or an error
// envelope. Anything that is not a JSON object is an error.
func decodeResponse(body []byte) (response, error) {
	var r response
	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return r, errors.New("response is not an object")
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			return readString(d, &r.ID)
		case "url":
			return readString(d, &r.URL)
		case "error":
			if d.Next() != jx.Object {
				return d.Skip()
			}
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key == "message" {
					return readString(d, &r.ErrorMessage)
				}
				return d.Skip()
			})
		default:
			return d.Skip()
		}
	})
	return r, err
}

func readString(d *jx.Decoder, dst *string) error {
	if d.Next() != jx.String {
		return d.Skip()
	}
	v, err := d.Str()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
