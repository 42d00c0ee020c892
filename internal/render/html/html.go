// Package html renders the cart drawer and badge as HTML fragments.
package html

import (
	"bytes"
	"html/template"
	"io"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/unseelie-shop/internal/domain/cart"
)

const fragments = `
{{define "body"}}
{{- if .Empty -}}
<div id="cart-empty">
  <span class="cart-empty-ornament">✦</span>
  <p class="cart-empty-text">Your cart is empty</p>
  <p class="cart-empty-sub">Discover our handcrafted pieces</p>
  <a href="shop.html" class="btn-secondary cart-shop-link">Browse the Shop</a>
</div>
{{- else -}}
<ul id="cart-items-list">
{{- range .Rows}}
<li class="cart-item" data-id="{{.ID}}">
  <div class="cart-item-thumb" aria-hidden="true">
    {{- if .Thumb}}<img src="{{.Thumb}}" alt="">{{else}}<span class="cart-item-thumb-fallback">✦</span>{{end -}}
  </div>
  <div class="cart-item-info">
    <span class="cart-item-name">{{.Title}}</span>
    <span class="cart-item-collection">{{.CollectionLabel}}</span>
    <span class="cart-item-price">{{.Price}}</span>
  </div>
  <div class="cart-item-controls">
    <button class="cart-qty-btn cart-qty-dec" data-id="{{.ID}}" aria-label="Decrease quantity">−</button>
    <span class="cart-qty-display">{{.Qty}}</span>
    <button class="cart-qty-btn cart-qty-inc" data-id="{{.ID}}" aria-label="Increase quantity">+</button>
    <button class="cart-remove-btn" data-id="{{.ID}}" aria-label="Remove {{.Name}}">&times;</button>
  </div>
</li>
{{- end}}
</ul>
{{- end -}}
{{end}}

{{define "footer"}}
{{- if not .Empty -}}
<div id="cart-subtotal-row">
  <span class="cart-subtotal-label">Subtotal</span>
  <span class="cart-subtotal-value">{{.Subtotal}}</span>
</div>
<button id="cart-checkout-btn" class="btn-primary"{{if .Checkout.Disabled}} disabled{{end}}>{{.Checkout.Label}}</button>
<div id="cart-checkout-error" style="display:{{if .Checkout.Error}}block{{else}}none{{end}}">{{.Checkout.Error}}</div>
<p class="cart-footer-note">
  Interested in custom sizing?&thinsp;
  <a href="contact.html">Enquire via contact</a>
</p>
{{- end -}}
{{end}}

{{define "badge"}}<span id="cart-badge" aria-live="polite" aria-atomic="true"{{if not .Visible}} hidden{{end}}>{{.Text}}</span>{{end}}
`

var tmpl = template.Must(template.New("cart").Parse(fragments))

// Body writes the drawer body: the empty state or the item list.
func Body(w io.Writer, d cart.Drawer) error {
	if err := tmpl.ExecuteTemplate(w, "body", d); err != nil {
		return errors.Wrap(err, "render drawer body")
	}
	return nil
}

// Footer writes the subtotal row and checkout control. It is empty for an
// empty cart.
func Footer(w io.Writer, d cart.Drawer) error {
	if err := tmpl.ExecuteTemplate(w, "footer", d); err != nil {
		return errors.Wrap(err, "render drawer footer")
	}
	return nil
}

// Badge writes the cart-count badge.
func Badge(w io.Writer, b cart.Badge) error {
	if err := tmpl.ExecuteTemplate(w, "badge", b); err != nil {
		return errors.Wrap(err, "render badge")
	}
	return nil
}

// Surface is a cart.Surface that keeps the rendered fragments and the
// drawer's presentation state in memory.
type Surface struct {
	mu       sync.Mutex
	body     string
	footer   string
	badge    string
	open     bool
	pulsing  bool
	location string
	err      error
}

var _ cart.Surface = (*Surface)(nil)

// NewSurface returns an empty Surface.
func NewSurface() *Surface {
	return &Surface{}
}

func (s *Surface) Render(d cart.Drawer) {
	var body, footer bytes.Buffer
	err := Body(&body, d)
	if err == nil {
		err = Footer(&footer, d)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err
		return
	}
	s.body, s.footer = body.String(), footer.String()
}

func (s *Surface) SetBadge(b cart.Badge) {
	var buf bytes.Buffer
	err := Badge(&buf, b)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err
		return
	}
	s.badge = buf.String()
}

func (s *Surface) SetOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = open
}

// Focus is a no-op: markup carries no focus state.
func (s *Surface) Focus(cart.FocusTarget) {}

func (s *Surface) Pulse(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pulsing = active
}

func (s *Surface) Navigate(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = url
}

// Write emits the drawer document: backdrop, header, body and footer. The
// root carries the "cart-open" class while the drawer is visible.
func (s *Surface) Write(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	class := "cart-root"
	if s.open {
		class += " cart-open"
	}
	if s.pulsing {
		class += " cart-pulse"
	}
	if _, err := io.WriteString(w, `<div id="cart-root" class="`+class+`">`+
		`<div id="cart-backdrop" aria-hidden="true"></div>`+
		`<aside id="cart-drawer" role="dialog" aria-modal="true" aria-label="Shopping cart" tabindex="-1">`+
		`<div id="cart-drawer-header"><h2 id="cart-drawer-title">Your Cart</h2>`+
		`<button id="cart-close-btn" aria-label="Close cart">&times;</button></div>`+
		`<div id="cart-drawer-body">`+s.body+`</div>`+
		`<div id="cart-drawer-footer">`+s.footer+`</div>`+
		`</aside></div>`); err != nil {
		return errors.Wrap(err, "write drawer")
	}
	return nil
}

// BadgeHTML returns the last rendered badge fragment.
func (s *Surface) BadgeHTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.badge
}

// IsOpen reports whether the drawer is shown.
func (s *Surface) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Location returns the last navigation target.
func (s *Surface) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}
