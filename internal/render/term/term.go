// Package term renders the cart drawer for terminals.
package term

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/xenking/unseelie-shop/internal/domain/cart"
)

// Palette of the workshop.
var (
	Gold    = lipgloss.Color("#c9a96e")
	Crimson = lipgloss.Color("#8b1a1a")
	Silver  = lipgloss.Color("#c0c0c0")
	Muted   = lipgloss.Color("#6b6b6b")
)

// Styles holds the styles of one output.
type Styles struct {
	Frame    lipgloss.Style
	Title    lipgloss.Style
	Name     lipgloss.Style
	Meta     lipgloss.Style
	Price    lipgloss.Style
	Subtotal lipgloss.Style
	Button   lipgloss.Style
	Disabled lipgloss.Style
	Error    lipgloss.Style
	Count    lipgloss.Style
}

// NewStyles builds styles whose color profile matches w.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Frame:    r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Gold).Padding(0, 1),
		Title:    r.NewStyle().Bold(true).Foreground(Gold),
		Name:     r.NewStyle().Bold(true),
		Meta:     r.NewStyle().Foreground(Muted),
		Price:    r.NewStyle().Foreground(Silver),
		Subtotal: r.NewStyle().Bold(true).Foreground(Gold),
		Button:   r.NewStyle().Bold(true).Foreground(Gold).Border(lipgloss.NormalBorder()).BorderForeground(Gold).Padding(0, 2),
		Disabled: r.NewStyle().Foreground(Muted).Border(lipgloss.NormalBorder()).BorderForeground(Muted).Padding(0, 2),
		Error:    r.NewStyle().Foreground(Crimson),
		Count:    r.NewStyle().Bold(true).Foreground(Crimson),
	}
}

// Drawer renders the drawer contents.
func (s Styles) Drawer(d cart.Drawer) string {
	parts := []string{s.Title.Render("Your Cart"), ""}
	if d.Empty {
		parts = append(parts,
			s.Meta.Render("✦"),
			"Your cart is empty",
			s.Meta.Render("Discover our handcrafted pieces"),
			s.Meta.Render("Browse the Shop: shop.html"),
		)
		return s.Frame.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	}

	for _, r := range d.Rows {
		parts = append(parts, s.row(r))
	}
	parts = append(parts, "", s.Meta.Render("Subtotal ")+s.Subtotal.Render(d.Subtotal))

	button := s.Button
	if d.Checkout.Disabled {
		button = s.Disabled
	}
	parts = append(parts, button.Render(d.Checkout.Label))
	if d.Checkout.Error != "" {
		parts = append(parts, s.Error.Render(d.Checkout.Error))
	}
	return s.Frame.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (s Styles) row(r cart.Row) string {
	glyph := "✦"
	if r.Thumb != "" {
		glyph = "▣"
	}
	info := lipgloss.JoinVertical(lipgloss.Left,
		s.Name.Render(r.Title()),
		s.Meta.Render(r.CollectionLabel),
		s.Price.Render(r.Price),
	)
	qty := s.Meta.Render(fmt.Sprintf("− %d +", r.Qty))
	return lipgloss.JoinHorizontal(lipgloss.Top, s.Meta.Render(glyph)+" ", info, "  ", qty) +
		"\n" + s.Meta.Render("  "+r.ID)
}

// Badge renders the count indicator; an invisible badge renders empty.
func (s Styles) Badge(b cart.Badge) string {
	if !b.Visible {
		return ""
	}
	return s.Count.Render("[" + b.Text + "]")
}

// Surface is a cart.Surface printing to a terminal. Render and SetBadge only
// record state; Flush prints it.
type Surface struct {
	w      io.Writer
	styles Styles

	mu     sync.Mutex
	drawer cart.Drawer
	badge  cart.Badge
	target string
}

var _ cart.Surface = (*Surface)(nil)

// NewSurface returns a Surface writing to w.
func NewSurface(w io.Writer) *Surface {
	return &Surface{w: w, styles: NewStyles(w)}
}

func (s *Surface) Render(d cart.Drawer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawer = d
}

func (s *Surface) SetBadge(b cart.Badge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badge = b
}

// SetOpen, Focus and Pulse have no terminal counterpart.
func (s *Surface) SetOpen(bool) {}

func (s *Surface) Focus(cart.FocusTarget) {}

func (s *Surface) Pulse(bool) {}

// Navigate prints the target so the user can follow it.
func (s *Surface) Navigate(url string) {
	s.mu.Lock()
	s.target = url
	s.mu.Unlock()
	_, _ = fmt.Fprintf(s.w, "Continue checkout at %s\n", url)
}

// Target returns the last navigation URL.
func (s *Surface) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Flush prints the badge and the drawer.
func (s *Surface) Flush() error {
	s.mu.Lock()
	d, b := s.drawer, s.badge
	s.mu.Unlock()

	var sb strings.Builder
	if badge := s.styles.Badge(b); badge != "" {
		sb.WriteString("Cart " + badge + "\n")
	}
	sb.WriteString(s.styles.Drawer(d))
	sb.WriteString("\n")
	_, err := io.WriteString(s.w, sb.String())
	return err
}
