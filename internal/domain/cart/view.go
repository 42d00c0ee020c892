package cart

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Checkout control labels.
const (
	LabelCheckout    = "Proceed to Checkout"
	LabelRedirecting = "Redirecting…"
)

// Badge is the cart-count indicator on the trigger icon.
type Badge struct {
	Text    string
	Visible bool
}

// BadgeFor returns the badge for a total item count. Counts above 99 display
// as "99+"; a zero count hides the badge and clears its text.
func BadgeFor(count int) Badge {
	switch {
	case count <= 0:
		return Badge{}
	case count > 99:
		return Badge{Text: "99+", Visible: true}
	default:
		return Badge{Text: strconv.Itoa(count), Visible: true}
	}
}

// FormatSubtotal renders an amount as dollars with two decimals, dropping a
// ".00" fraction: 150 → "$150", 19.5 → "$19.50".
func FormatSubtotal(amount decimal.Decimal) string {
	return "$" + strings.TrimSuffix(amount.StringFixed(2), ".00")
}

// Row is one rendered line item.
type Row struct {
	ID              string
	Name            string
	Size            string
	CollectionLabel string
	Price           string
	Thumb           string
	Qty             int
}

// Title is the row name with the size suffix, if any.
func (r Row) Title() string {
	if r.Size == "" {
		return r.Name
	}
	return r.Name + " — " + r.Size
}

// CheckoutControl is the state of the checkout trigger in the drawer footer.
type CheckoutControl struct {
	Disabled bool
	Label    string
	// Error is the inline checkout error; empty hides it.
	Error string
}

// Drawer is the render model of the cart drawer contents. When Empty is set
// the surface shows the empty state and no footer.
type Drawer struct {
	Empty    bool
	Rows     []Row
	Subtotal string
	Checkout CheckoutControl
}

func buildDrawer(items []LineItem, control CheckoutControl) Drawer {
	if len(items) == 0 {
		return Drawer{Empty: true}
	}
	rows := make([]Row, len(items))
	for i, it := range items {
		rows[i] = Row{
			ID:              it.ID,
			Name:            it.Name,
			Size:            it.Size,
			CollectionLabel: it.CollectionLabel,
			Price:           it.Price,
			Thumb:           it.Thumb,
			Qty:             it.Qty,
		}
	}
	return Drawer{
		Rows:     rows,
		Subtotal: FormatSubtotal(subtotal(items)),
		Checkout: control,
	}
}

func subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Total())
	}
	return sum
}

func count(items []LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Qty
	}
	return n
}
