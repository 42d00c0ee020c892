//go:build integration

package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestCheckout_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "invalid json", body: `{"items":`, wantMsg: "Invalid request body."},
		{name: "missing items", body: `{"successUrl":"https://shop.test/thankyou","cancelUrl":"https://shop.test/"}`, wantMsg: "Missing required fields."},
		{name: "missing urls", body: `{"items":[{"stripePriceId":"price_1","qty":1}]}`, wantMsg: "Missing required fields."},
		{name: "no valid items", body: `{"items":[{"stripePriceId":null,"qty":1},{"stripePriceId":"price_1","qty":0}],"successUrl":"https://shop.test/thankyou","cancelUrl":"https://shop.test/"}`, wantMsg: "No valid items in cart."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doPostRaw(t, "/api/checkout", tt.body)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}

			body := decodeJSON[errorResponse](t, resp)
			if body.Error != tt.wantMsg {
				t.Errorf("error: got %q, want %q", body.Error, tt.wantMsg)
			}
		})
	}
}

func TestCheckout_CreatesSession(t *testing.T) {
	resp := doPost(t, "/api/checkout", checkoutRequest{
		Items: []checkoutItem{
			{StripePriceID: ptr("price_1MoBy5LkdIwHu7ixZhnattbh"), Qty: 2},
			{StripePriceID: nil, Qty: 1},
		},
		SuccessURL: "https://shop.test/thankyou",
		CancelURL:  "https://shop.test/collar.html",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := decodeJSON[errorResponse](t, resp)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body.Error)
	}

	body := decodeJSON[checkoutResponse](t, resp)
	if !strings.HasPrefix(body.URL, "https://") {
		t.Errorf("url: got %q, want a hosted checkout URL", body.URL)
	}
}

func TestCheckout_MethodNotAllowed(t *testing.T) {
	resp := doGet(t, "/api/checkout")
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		t.Fatalf("GET /api/checkout must not succeed")
	}
}
