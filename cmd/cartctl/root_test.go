package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/unseelie-shop/internal/domain/cart"
	"github.com/xenking/unseelie-shop/internal/domain/catalog"
	"github.com/xenking/unseelie-shop/internal/storage/file"
)

const testCatalog = "../../internal/domain/catalog/testdata/products.json"

// storefront fakes the API server: the catalog feed and a checkout endpoint
// answering with checkoutBody.
func storefront(t *testing.T, checkoutBody string) *httptest.Server {
	t.Helper()
	raw, err := os.ReadFile(testCatalog)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /data/products.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(raw)
	})
	mux.HandleFunc("POST /api/checkout", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, checkoutBody)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	t        *testing.T
	stateDir string
	api      string
}

func newHarness(t *testing.T, checkoutBody string) *harness {
	return &harness{t: t, stateDir: t.TempDir(), api: storefront(t, checkoutBody).URL}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--state-dir", h.stateDir, "--api", h.api}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) items() []cart.LineItem {
	h.t.Helper()
	kv, err := file.NewKV(h.stateDir)
	require.NoError(h.t, err)
	data, ok, err := kv.Get(cart.StorageKey)
	require.NoError(h.t, err)
	if !ok {
		return nil
	}
	items, err := cart.DecodeSnapshot(data)
	require.NoError(h.t, err)
	return items
}

func TestCartctl_AddAndEdit(t *testing.T) {
	h := newHarness(t, `{}`)

	out, err := h.run("add", "vampiric-collar")
	require.NoError(t, err)
	assert.Contains(t, out, "Collar")
	assert.Contains(t, out, "Cart [1]")

	_, err = h.run("add", "vampiric-cuffs", "--size", "M", "--catalog", testCatalog)
	require.NoError(t, err)
	_, err = h.run("add", "vampiric-collar")
	require.NoError(t, err)

	items := h.items()
	require.Len(t, items, 2)
	assert.Equal(t, "vampiric-collar", items[0].ID)
	assert.Equal(t, 2, items[0].Qty)
	assert.Equal(t, "vampiric-cuffs:M", items[1].ID)
	assert.Equal(t, "price_cuffs_m", items[1].StripePriceID)

	_, err = h.run("inc", "vampiric-cuffs:M")
	require.NoError(t, err)
	_, err = h.run("dec", "vampiric-collar")
	require.NoError(t, err)
	items = h.items()
	assert.Equal(t, 1, items[0].Qty)
	assert.Equal(t, 2, items[1].Qty)

	_, err = h.run("qty", "vampiric-collar", "0")
	require.NoError(t, err)
	_, err = h.run("remove", "unknown")
	require.NoError(t, err)
	items = h.items()
	require.Len(t, items, 1)
	assert.Equal(t, "vampiric-cuffs:M", items[0].ID)

	out, err = h.run("remove", "vampiric-cuffs:M")
	require.NoError(t, err)
	assert.Contains(t, out, "Your cart is empty")
	assert.Empty(t, h.items())
}

func TestCartctl_AddErrors(t *testing.T) {
	h := newHarness(t, `{}`)

	_, err := h.run("add", "vampiric-cuffs")
	require.ErrorIs(t, err, catalog.ErrSizeRequired)

	_, err = h.run("add", "vampiric-cuffs", "--size", "XXL")
	require.ErrorIs(t, err, catalog.ErrSizeNotFound)

	_, err = h.run("add", "nope")
	require.ErrorIs(t, err, catalog.ErrProductNotFound)

	_, err = h.run("qty", "vampiric-collar", "many")
	require.Error(t, err)
}

func TestCartctl_ShowHTML(t *testing.T) {
	h := newHarness(t, `{}`)
	_, err := h.run("add", "nightshade-leash")
	require.NoError(t, err)

	out, err := h.run("show", "--html")
	require.NoError(t, err)
	assert.Contains(t, out, `<li class="cart-item" data-id="nightshade-leash">`)
	assert.Contains(t, out, `<span class="cart-subtotal-value">$64.50</span>`)
	assert.Contains(t, out, "cart-open")
}

func TestCartctl_Checkout(t *testing.T) {
	h := newHarness(t, `{"url":"https://checkout.stripe.com/c/pay/cs_1"}`)

	_, err := h.run("checkout")
	require.ErrorIs(t, err, cart.ErrEmptyCart)

	_, err = h.run("add", "vampiric-collar")
	require.NoError(t, err)

	out, err := h.run("checkout", "--page-url", "https://shop.test/collar.html")
	require.NoError(t, err)
	assert.Contains(t, out, "Continue checkout at https://checkout.stripe.com/c/pay/cs_1")
	assert.Len(t, h.items(), 1, "cart is kept after redirect")
}

func TestCartctl_CheckoutFailure(t *testing.T) {
	h := newHarness(t, `{"error":"No valid items in cart."}`)
	_, err := h.run("add", "vampiric-collar")
	require.NoError(t, err)

	out, err := h.run("checkout")
	var gwErr *cart.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Contains(t, out, "No valid items in cart.")
	assert.Contains(t, out, cart.LabelCheckout)
}

func TestCartctl_Products(t *testing.T) {
	h := newHarness(t, `{}`)

	out, err := h.run("products", "--filter", "collection:nightshade")
	require.NoError(t, err)
	assert.Contains(t, out, "[Nightshade Set]")
	assert.Contains(t, out, "1 piece\n")
	assert.Contains(t, out, "nightshade-leash")
	assert.NotContains(t, out, "vampiric-collar")
}

func TestCartctl_UnusableStateDir(t *testing.T) {
	h := newHarness(t, `{}`)
	blocker := h.stateDir + "/blocker"
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	h.stateDir = blocker + "/state"

	out, err := h.run("add", "vampiric-collar")
	require.NoError(t, err)
	assert.Contains(t, out, "Cart [1]")

	out, err = h.run("show")
	require.NoError(t, err)
	assert.Contains(t, out, "Your cart is empty")
}
