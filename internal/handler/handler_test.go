package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/unseelie-shop/internal/domain/checkout"
)

// --- Mock implementations ---

type mockSessionCreator struct {
	session *checkout.Session
	err     error
	calls   []checkout.SessionParams
}

func (m *mockSessionCreator) CreateSession(_ context.Context, p checkout.SessionParams) (*checkout.Session, error) {
	m.calls = append(m.calls, p)
	return m.session, m.err
}

type staticCatalog []byte

func (c staticCatalog) Raw() []byte { return c }

// --- Helpers ---

func newTestServer(t *testing.T, creator *mockSessionCreator, catalog CatalogSource) *httptest.Server {
	t.Helper()
	svc, err := checkout.NewService(creator, noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewHandler(svc, catalog).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/checkout", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

const validBody = `{
	"items":[{"stripePriceId":"price_ring","qty":2},{"stripePriceId":null,"qty":1}],
	"successUrl":"https://shop.example/thankyou",
	"cancelUrl":"https://shop.example/"
}`

// --- Tests ---

func TestCheckout(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		creator    *mockSessionCreator
		wantStatus int
		wantBody   string
		wantCalls  int
	}{
		{
			name:       "success",
			body:       validBody,
			creator:    &mockSessionCreator{session: &checkout.Session{ID: "cs_1", URL: "https://checkout.stripe.com/c/pay/cs_1"}},
			wantStatus: http.StatusOK,
			wantBody:   `{"url":"https://checkout.stripe.com/c/pay/cs_1"}`,
			wantCalls:  1,
		},
		{
			name:       "malformed json",
			body:       `{"items":[`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Invalid request body."}`,
		},
		{
			name:       "empty body",
			body:       ``,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Invalid request body."}`,
		},
		{
			name:       "missing success url",
			body:       `{"items":[{"stripePriceId":"price_1","qty":1}],"cancelUrl":"https://shop.example/"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Missing required fields."}`,
		},
		{
			name:       "items not an array",
			body:       `{"items":{"stripePriceId":"price_1","qty":1},"successUrl":"a","cancelUrl":"b"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Missing required fields."}`,
		},
		{
			name:       "empty items array",
			body:       `{"items":[],"successUrl":"a","cancelUrl":"b"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"No valid items in cart."}`,
		},
		{
			name:       "body not an object",
			body:       `[1,2,3]`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Missing required fields."}`,
		},
		{
			name:       "no valid items",
			body:       `{"items":[{"stripePriceId":"","qty":1},{"stripePriceId":"price_1","qty":0},{"qty":3},"junk"],"successUrl":"a","cancelUrl":"b"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"No valid items in cart."}`,
		},
		{
			name:       "fractional quantity is invalid",
			body:       `{"items":[{"stripePriceId":"price_1","qty":1.5}],"successUrl":"a","cancelUrl":"b"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"No valid items in cart."}`,
		},
		{
			name:       "integral quantity with fraction or exponent",
			body:       `{"items":[{"stripePriceId":"price_1","qty":2.0},{"stripePriceId":"price_2","qty":1e1}],"successUrl":"a","cancelUrl":"b"}`,
			creator:    &mockSessionCreator{session: &checkout.Session{ID: "cs_2", URL: "https://checkout.stripe.com/c/pay/cs_2"}},
			wantStatus: http.StatusOK,
			wantBody:   `{"url":"https://checkout.stripe.com/c/pay/cs_2"}`,
			wantCalls:  1,
		},
		{
			name:       "quantity as string is invalid",
			body:       `{"items":[{"stripePriceId":"price_1","qty":"2"}],"successUrl":"a","cancelUrl":"b"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"No valid items in cart."}`,
		},
		{
			name:       "provider message relayed",
			body:       validBody,
			creator:    &mockSessionCreator{err: &checkout.ProviderError{StatusCode: 402, Message: "card network down"}},
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"error":"card network down"}`,
			wantCalls:  1,
		},
		{
			name:       "provider without message",
			body:       validBody,
			creator:    &mockSessionCreator{err: &checkout.ProviderError{StatusCode: 500}},
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"error":"Stripe error."}`,
			wantCalls:  1,
		},
		{
			name:       "provider unreachable",
			body:       validBody,
			creator:    &mockSessionCreator{err: errors.Wrap(checkout.ErrProviderUnreachable, "dial")},
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"error":"Could not reach Stripe. Please try again."}`,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := tt.creator
			if creator == nil {
				creator = &mockSessionCreator{err: errors.New("must not be called")}
			}
			srv := newTestServer(t, creator, staticCatalog(nil))

			status, body := post(t, srv, tt.body)

			assert.Equal(t, tt.wantStatus, status)
			assert.JSONEq(t, tt.wantBody, body)
			assert.Len(t, creator.calls, tt.wantCalls)
		})
	}
}

func TestCheckout_ForwardsOnlyValidItems(t *testing.T) {
	creator := &mockSessionCreator{session: &checkout.Session{URL: "https://checkout.stripe.com/x"}}
	srv := newTestServer(t, creator, staticCatalog(nil))

	status, _ := post(t, srv, validBody)
	require.Equal(t, http.StatusOK, status)

	require.Len(t, creator.calls, 1)
	assert.Equal(t, checkout.SessionParams{
		LineItems:  []checkout.Item{{PriceID: "price_ring", Qty: 2}},
		SuccessURL: "https://shop.example/thankyou",
		CancelURL:  "https://shop.example/",
	}, creator.calls[0])
}

func TestCheckout_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &mockSessionCreator{}, staticCatalog(nil))

	resp, err := http.Get(srv.URL + "/api/checkout")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCheckout_BodyTooLarge(t *testing.T) {
	creator := &mockSessionCreator{}
	srv := newTestServer(t, creator, staticCatalog(nil))

	huge := `{"successUrl":"` + strings.Repeat("a", maxBodySize) + `"}`
	status, body := post(t, srv, huge)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"error":"Invalid request body."}`, body)
	assert.Empty(t, creator.calls)
}

func TestDecodeCheckoutRequest(t *testing.T) {
	req, err := DecodeCheckoutRequest([]byte(`{"items":[],"successUrl":5,"cancelUrl":"b","extra":true}`))
	require.NoError(t, err)
	assert.NotNil(t, req.Items)
	assert.Empty(t, req.Items)
	assert.Empty(t, req.SuccessURL)
	assert.Equal(t, "b", req.CancelURL)

	req, err = DecodeCheckoutRequest([]byte(`{"successUrl":"a"}`))
	require.NoError(t, err)
	assert.Nil(t, req.Items)

	req, err = DecodeCheckoutRequest([]byte(`{"items":[{"stripePriceId":"p","qty":2.0},{"stripePriceId":"p","qty":1e1},{"stripePriceId":"p","qty":-3.0},{"stripePriceId":"p","qty":1e400}]}`))
	require.NoError(t, err)
	assert.Equal(t, []checkout.Item{{PriceID: "p", Qty: 2}, {PriceID: "p", Qty: 10}, {PriceID: "p", Qty: -3}, {PriceID: "p"}}, req.Items)

	_, err = DecodeCheckoutRequest([]byte(`nope`))
	require.ErrorIs(t, err, checkout.ErrInvalidBody)
}

func TestProducts(t *testing.T) {
	t.Run("serves document", func(t *testing.T) {
		doc := `{"products":[],"collections":{},"types":{}}`
		srv := newTestServer(t, &mockSessionCreator{}, staticCatalog(doc))

		resp, err := http.Get(srv.URL + "/data/products.json")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		assert.JSONEq(t, doc, string(data))
	})

	t.Run("not loaded", func(t *testing.T) {
		srv := newTestServer(t, &mockSessionCreator{}, staticCatalog(nil))

		resp, err := http.Get(srv.URL + "/data/products.json")
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}
