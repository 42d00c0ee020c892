package cart

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSnapshot_Fields(t *testing.T) {
	items := []LineItem{{
		ID:              "ring:M",
		Name:            "Moonlit Ring",
		Collection:      "moon",
		CollectionLabel: "The Moon Collection",
		Price:           "$75",
		PriceNum:        decimal.RequireFromString("75.5"),
		Size:            "M",
		StripePriceID:   "price_M",
		Qty:             2,
	}}

	got := string(EncodeSnapshot(items))

	assert.JSONEq(t, `[{
		"id":"ring:M","name":"Moonlit Ring","collection":"moon",
		"collectionLabel":"The Moon Collection","price":"$75","priceNum":75.5,
		"thumb":null,"size":"M","stripePriceId":"price_M","qty":2
	}]`, got)
}

func TestDecodeSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []LineItem
		wantErr bool
	}{
		{
			name:  "empty array",
			input: `[]`,
			want:  []LineItem{},
		},
		{
			name:  "price as string",
			input: `[{"id":"a","priceNum":"19.50","qty":1}]`,
			want:  []LineItem{{ID: "a", PriceNum: decimal.RequireFromString("19.5"), Qty: 1}},
		},
		{
			name:  "drops entries without id or quantity",
			input: `[{"name":"x","qty":1},{"id":"a","qty":0},{"id":"b","qty":1.5},{"id":"c","qty":1}]`,
			want:  []LineItem{{ID: "c", Qty: 1}},
		},
		{
			name:  "integral quantities in any notation",
			input: `[{"id":"a","qty":2.0},{"id":"b","qty":1e1},{"id":"c","qty":"2"}]`,
			want:  []LineItem{{ID: "a", Qty: 2}, {ID: "b", Qty: 10}},
		},
		{
			name:  "merges duplicate ids",
			input: `[{"id":"a","qty":1},{"id":"b","qty":1},{"id":"a","qty":3}]`,
			want:  []LineItem{{ID: "a", Qty: 4}, {ID: "b", Qty: 1}},
		},
		{
			name:  "skips non-object entries",
			input: `[1,"x",null,{"id":"a","qty":2}]`,
			want:  []LineItem{{ID: "a", Qty: 2}},
		},
		{
			name:  "ignores unknown fields",
			input: `[{"id":"a","qty":1,"extra":{"nested":[1,2]}}]`,
			want:  []LineItem{{ID: "a", Qty: 1}},
		},
		{
			name:    "not an array",
			input:   `{"id":"a"}`,
			wantErr: true,
		},
		{
			name:    "null",
			input:   `null`,
			wantErr: true,
		},
		{
			name:    "truncated",
			input:   `[{"id":"a"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSnapshot([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DecodeSnapshot mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
