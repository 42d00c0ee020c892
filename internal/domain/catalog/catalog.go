// Package catalog reads the static product catalog document.
package catalog

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/unseelie-shop/internal/domain/cart"
)

var (
	// ErrProductNotFound is returned for an unknown product id.
	ErrProductNotFound = errors.New("product not found")
	// ErrSizeNotFound is returned when a product has no such size.
	ErrSizeNotFound = errors.New("size not found")
	// ErrSizeRequired is returned when a sized product is added without a size.
	ErrSizeRequired = errors.New("size required")
)

// Product is one catalog entry.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Collection    string          `json:"collection"`
	Type          string          `json:"type"`
	Icon          string          `json:"icon"`
	Price         string          `json:"price"`
	PriceNum      decimal.Decimal `json:"priceNum"`
	Description   string          `json:"description"`
	Details       []string        `json:"details"`
	Sizing        string          `json:"sizing"`
	Images        []string        `json:"images"`
	Thumb         string          `json:"thumb"`
	StripePriceID string          `json:"stripePriceId"`
	Sizes         []Size          `json:"sizes"`
}

// Size is a purchasable variant with its own price reference.
type Size struct {
	Label         string `json:"label"`
	StripePriceID string `json:"stripePriceId"`
}

// Thumbnail returns the explicit thumb or the first gallery image.
func (p Product) Thumbnail() string {
	if p.Thumb != "" {
		return p.Thumb
	}
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return ""
}

// Collection is a named product set with its presentation colours.
type Collection struct {
	Key          string `json:"-"`
	Label        string `json:"label"`
	Href         string `json:"href"`
	Accent       string `json:"accent"`
	GradientFrom string `json:"gradientFrom"`
	GradientTo   string `json:"gradientTo"`
}

// Type is a product category.
type Type struct {
	Key   string `json:"-"`
	Label string `json:"label"`
}

// Catalog is a decoded catalog document. Collections and types keep the
// order they appear in the document.
type Catalog struct {
	Products    []Product
	Collections []Collection
	Types       []Type
}

type document struct {
	Products    []Product       `json:"products"`
	Collections json.RawMessage `json:"collections"`
	Types       json.RawMessage `json:"types"`
}

// Decode reads a catalog document.
func Decode(r io.Reader) (*Catalog, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}

	c := &Catalog{Products: doc.Products}
	if err := decodeOrdered(doc.Collections, func(key string, raw json.RawMessage) error {
		var col Collection
		if err := json.Unmarshal(raw, &col); err != nil {
			return err
		}
		col.Key = key
		c.Collections = append(c.Collections, col)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode collections")
	}
	if err := decodeOrdered(doc.Types, func(key string, raw json.RawMessage) error {
		var t Type
		if err := json.Unmarshal(raw, &t); err != nil {
			return err
		}
		t.Key = key
		c.Types = append(c.Types, t)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode types")
	}

	for i, p := range c.Products {
		if p.ID == "" {
			return nil, errors.Errorf("product %d has no id", i)
		}
	}
	return c, nil
}

// decodeOrdered walks a JSON object calling fn for each member in document
// order. A missing or null object is empty.
func decodeOrdered(raw json.RawMessage, fn func(key string, value json.RawMessage) error) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	d := json.NewDecoder(bytes.NewReader(raw))
	tok, err := d.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("expected object")
	}
	for d.More() {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errors.New("expected object key")
		}
		var value json.RawMessage
		if err := d.Decode(&value); err != nil {
			return err
		}
		if err := fn(key, value); err != nil {
			return errors.Wrap(err, key)
		}
	}
	return nil
}

// Product looks up a product by id.
func (c *Catalog) Product(id string) (Product, error) {
	for _, p := range c.Products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrProductNotFound
}

// Collection looks up a collection by key.
func (c *Catalog) Collection(key string) (Collection, bool) {
	for _, col := range c.Collections {
		if col.Key == key {
			return col, true
		}
	}
	return Collection{}, false
}

// InCollection returns the products of one collection in catalog order.
func (c *Catalog) InCollection(key string) []Product {
	return c.Filter("collection:" + key)
}

// Filter returns the products matching a filter value: "all",
// "type:<key>" or "collection:<key>". Unknown filter forms match nothing.
func (c *Catalog) Filter(value string) []Product {
	match := func(Product) bool { return false }
	switch {
	case value == "all":
		match = func(Product) bool { return true }
	case strings.HasPrefix(value, "type:"):
		key := strings.TrimPrefix(value, "type:")
		match = func(p Product) bool { return p.Type == key }
	case strings.HasPrefix(value, "collection:"):
		key := strings.TrimPrefix(value, "collection:")
		match = func(p Product) bool { return p.Collection == key }
	}

	out := make([]Product, 0, len(c.Products))
	for _, p := range c.Products {
		if match(p) {
			out = append(out, p)
		}
	}
	return out
}

// FilterOption is one pill of the shop filter bar.
type FilterOption struct {
	Label string
	Value string
}

// FilterOptions lists the filter bar: "All", then every type, then every
// collection with a leading "The " dropped from its label.
func (c *Catalog) FilterOptions() []FilterOption {
	opts := make([]FilterOption, 0, 1+len(c.Types)+len(c.Collections))
	opts = append(opts, FilterOption{Label: "All", Value: "all"})
	for _, t := range c.Types {
		opts = append(opts, FilterOption{Label: t.Label, Value: "type:" + t.Key})
	}
	for _, col := range c.Collections {
		opts = append(opts, FilterOption{
			Label: strings.TrimPrefix(col.Label, "The "),
			Value: "collection:" + col.Key,
		})
	}
	return opts
}

// CountLabel renders a product count for the filter bar, e.g. "1 piece".
func CountLabel(n int) string {
	if n == 1 {
		return "1 piece"
	}
	return strconv.Itoa(n) + " pieces"
}

// CartProduct builds what the product page adds to the cart. Sized products
// require a size and use the size's price reference; the line id then
// becomes "<id>:<size>" so each size is its own line.
func (c *Catalog) CartProduct(productID, size string) (cart.Product, error) {
	p, err := c.Product(productID)
	if err != nil {
		return cart.Product{}, err
	}

	out := cart.Product{
		ID:            p.ID,
		Name:          p.Name,
		Collection:    p.Collection,
		Price:         p.Price,
		PriceNum:      p.PriceNum,
		Thumb:         p.Thumbnail(),
		StripePriceID: p.StripePriceID,
	}
	if col, ok := c.Collection(p.Collection); ok {
		out.CollectionLabel = col.Label
	}

	switch {
	case size != "":
		s, ok := findSize(p.Sizes, size)
		if !ok {
			return cart.Product{}, errors.Errorf("%s %q: %w", p.ID, size, ErrSizeNotFound)
		}
		out.ID = p.ID + ":" + s.Label
		out.Size = s.Label
		out.StripePriceID = s.StripePriceID
	case len(p.Sizes) > 0:
		return cart.Product{}, errors.Errorf("%s: %w", p.ID, ErrSizeRequired)
	}
	return out, nil
}

func findSize(sizes []Size, label string) (Size, bool) {
	for _, s := range sizes {
		if s.Label == label {
			return s, true
		}
	}
	return Size{}, false
}
