package cart

import (
	"math"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Storage is a synchronous key/value store for cart snapshots, the
// equivalent of browser local storage.
type Storage interface {
	// Get returns the stored value and whether the key was present.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}

// EncodeSnapshot serializes items as a JSON array of line-item objects.
// Absent optional fields are written as null.
func EncodeSnapshot(items []LineItem) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(it.ID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("collection")
		e.Str(it.Collection)
		e.FieldStart("collectionLabel")
		e.Str(it.CollectionLabel)
		e.FieldStart("price")
		e.Str(it.Price)
		e.FieldStart("priceNum")
		e.Raw([]byte(it.PriceNum.String()))
		e.FieldStart("thumb")
		encodeOptStr(&e, it.Thumb)
		e.FieldStart("size")
		encodeOptStr(&e, it.Size)
		e.FieldStart("stripePriceId")
		encodeOptStr(&e, it.StripePriceID)
		e.FieldStart("qty")
		e.Int(it.Qty)
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

func encodeOptStr(e *jx.Encoder, v string) {
	if v == "" {
		e.Null()
		return
	}
	e.Str(v)
}

// DecodeSnapshot parses a stored snapshot. Any value that is not a JSON array
// of objects yields an error; callers restoring a cart treat that as empty.
//
// Entries without an id or with a quantity below one are dropped, and
// repeated ids are merged by summing their quantities.
func DecodeSnapshot(data []byte) ([]LineItem, error) {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Array {
		return nil, errors.New("snapshot is not an array")
	}

	items := make([]LineItem, 0)
	index := make(map[string]int)
	if err := d.Arr(func(d *jx.Decoder) error {
		if d.Next() != jx.Object {
			return d.Skip()
		}
		it, err := decodeLineItem(d)
		if err != nil {
			return err
		}
		if it.ID == "" || it.Qty < 1 {
			return nil
		}
		if i, ok := index[it.ID]; ok {
			items[i].Qty += it.Qty
			return nil
		}
		index[it.ID] = len(items)
		items = append(items, it)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return items, nil
}

func decodeLineItem(d *jx.Decoder) (LineItem, error) {
	var it LineItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			it.ID, err = decodeOptStr(d)
		case "name":
			it.Name, err = decodeOptStr(d)
		case "collection":
			it.Collection, err = decodeOptStr(d)
		case "collectionLabel":
			it.CollectionLabel, err = decodeOptStr(d)
		case "price":
			it.Price, err = decodeOptStr(d)
		case "priceNum":
			it.PriceNum, err = decodeDecimal(d)
		case "thumb":
			it.Thumb, err = decodeOptStr(d)
		case "size":
			it.Size, err = decodeOptStr(d)
		case "stripePriceId":
			it.StripePriceID, err = decodeOptStr(d)
		case "qty":
			it.Qty, err = decodeQty(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return it, err
}

// decodeOptStr reads a string, mapping null and non-string values to "".
func decodeOptStr(d *jx.Decoder) (string, error) {
	if d.Next() != jx.String {
		return "", d.Skip()
	}
	return d.Str()
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		v, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, nil
		}
		return v, nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, nil
		}
		return v, nil
	default:
		return decimal.Zero, d.Skip()
	}
}

// decodeQty reads an integral quantity. Non-integral or non-numeric values
// decode as zero.
func decodeQty(d *jx.Decoder) (int, error) {
	if d.Next() != jx.Number {
		return 0, d.Skip()
	}
	n, err := d.Num()
	if err != nil {
		return 0, err
	}
	// 2, 2.0 and 1e1 are the same quantity.
	v, err := n.Float64()
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) || math.Trunc(v) != v || math.Abs(v) > math.MaxInt32 {
		return 0, nil
	}
	return int(v), nil
}
