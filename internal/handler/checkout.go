package handler

import (
	"bytes"
	"io"
	"math"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/unseelie-shop/internal/domain/checkout"
)

// Checkout handles POST /api/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, checkout.MessageInvalidBody)
		return
	}
	req, err := DecodeCheckoutRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, checkout.MessageInvalidBody)
		return
	}

	sess, err := h.checkout.CreateSession(r.Context(), req)
	if err != nil {
		status, msg := mapCheckoutError(err)
		if status >= http.StatusInternalServerError {
			zctx.From(r.Context()).Warn("Checkout failed", zap.Int("status", status), zap.Error(err))
		}
		writeError(w, status, msg)
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("url", func(e *jx.Encoder) { e.Str(sess.URL) })
	})
	writeJSON(w, http.StatusOK, e.Bytes())
}

// mapCheckoutError converts domain errors to a status and client message.
func mapCheckoutError(err error) (int, string) {
	switch {
	case errors.Is(err, checkout.ErrInvalidBody):
		return http.StatusBadRequest, checkout.MessageInvalidBody
	case errors.Is(err, checkout.ErrMissingFields):
		return http.StatusBadRequest, checkout.MessageMissingFields
	case errors.Is(err, checkout.ErrNoValidItems):
		return http.StatusBadRequest, checkout.MessageNoValidItems
	}

	var provErr *checkout.ProviderError
	if errors.As(err, &provErr) {
		return http.StatusBadGateway, provErr.PublicMessage()
	}
	return http.StatusBadGateway, checkout.MessageProviderDown
}

// DecodeCheckoutRequest parses a checkout body. Malformed JSON yields
// checkout.ErrInvalidBody. Well-formed JSON of the wrong shape decodes into a
// Request that fails validation: a non-object body or a non-array items
// field leaves Items nil, and non-string URLs are treated as empty.
func DecodeCheckoutRequest(body []byte) (checkout.Request, error) {
	var req checkout.Request
	if len(bytes.TrimSpace(body)) == 0 || !jx.Valid(body) {
		return req, checkout.ErrInvalidBody
	}
	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return req, nil
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			items, err := decodeItems(d)
			req.Items = items
			return err
		case "successUrl":
			return readString(d, &req.SuccessURL)
		case "cancelUrl":
			return readString(d, &req.CancelURL)
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return checkout.Request{}, errors.Wrap(checkout.ErrInvalidBody, err.Error())
	}
	return req, nil
}

func decodeItems(d *jx.Decoder) ([]checkout.Item, error) {
	if d.Next() != jx.Array {
		return nil, d.Skip()
	}
	items := make([]checkout.Item, 0)
	err := d.Arr(func(d *jx.Decoder) error {
		var it checkout.Item
		if d.Next() != jx.Object {
			items = append(items, it)
			return d.Skip()
		}
		err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "stripePriceId":
				return readString(d, &it.PriceID)
			case "qty":
				return readQty(d, &it.Qty)
			default:
				return d.Skip()
			}
		})
		items = append(items, it)
		return err
	})
	return items, err
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

// readQty accepts integral JSON numbers in any notation (2, 2.0, 1e1);
// anything else leaves dst at zero so the item is filtered out.
func readQty(d *jx.Decoder, dst *int) error {
	if d.Next() != jx.Number {
		return d.Skip()
	}
	n, err := d.Num()
	if err != nil {
		return err
	}
	v, err := n.Float64()
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) || math.Trunc(v) != v || math.Abs(v) > math.MaxInt32 {
		return nil
	}
	*dst = int(v)
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("error", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, status, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
