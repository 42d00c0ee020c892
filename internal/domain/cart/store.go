// Package cart implements the shopping cart: an ordered set of line items
// mirrored to durable storage and rendered into a drawer surface.
package cart

import (
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// focusDelay lets the drawer's opening transition start before focus moves.
	focusDelay = 50 * time.Millisecond
	// pulseDuration is how long the trigger icon pulses after an add.
	pulseDuration = 600 * time.Millisecond
)

// FocusTarget identifies where keyboard focus should go.
type FocusTarget int

const (
	// FocusDrawer is the drawer panel itself.
	FocusDrawer FocusTarget = iota + 1
	// FocusTrigger is the cart icon that opens the drawer.
	FocusTrigger
)

// Surface is the UI layer driven by the Store. Implementations must not call
// back into the Store from these methods.
type Surface interface {
	Render(d Drawer)
	SetBadge(b Badge)
	SetOpen(open bool)
	Focus(t FocusTarget)
	// Pulse toggles the attention animation on the trigger icon.
	Pulse(active bool)
	// Navigate leaves the page for url.
	Navigate(url string)
}

// Store owns the line items of one page instance.
type Store struct {
	mu      sync.Mutex
	items   []LineItem
	open    bool
	control CheckoutControl
	seq     uint64

	// pubMu orders surface updates; published is the seq last rendered.
	pubMu     sync.Mutex
	published uint64

	storage  Storage
	surface  Surface
	client   CheckoutClient
	lg       *zap.Logger
	schedule func(d time.Duration, f func())
}

// Load restores the cart from storage and renders it. A missing, corrupt or
// unreadable snapshot yields an empty cart.
func Load(storage Storage, surface Surface, client CheckoutClient, lg *zap.Logger) *Store {
	if lg == nil {
		lg = zap.NewNop()
	}
	s := &Store{
		control: CheckoutControl{Label: LabelCheckout},
		storage: storage,
		surface: surface,
		client:  client,
		lg:      lg,
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	s.items = s.restore()
	s.publish(s.snapshot())
	return s
}

func (s *Store) restore() []LineItem {
	data, ok, err := s.storage.Get(StorageKey)
	if err != nil {
		s.lg.Debug("Cart snapshot unreadable", zap.Error(err))
		return nil
	}
	if !ok || len(data) == 0 {
		return nil
	}
	items, err := DecodeSnapshot(data)
	if err != nil {
		s.lg.Debug("Cart snapshot discarded", zap.Error(err))
		return nil
	}
	return items
}

// view is everything a surface needs after a state change. seq orders views
// taken under s.mu.
type view struct {
	seq    uint64
	drawer Drawer
	badge  Badge
}

// snapshot must be called with s.mu held or before the Store is shared.
func (s *Store) snapshot() view {
	s.seq++
	return view{
		seq:    s.seq,
		drawer: buildDrawer(s.items, s.control),
		badge:  BadgeFor(count(s.items)),
	}
}

// publish renders v unless a later view already reached the surface, so
// concurrent mutations cannot leave a stale drawer or badge on screen.
func (s *Store) publish(v view) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if v.seq <= s.published {
		return
	}
	s.published = v.seq
	s.surface.Render(v.drawer)
	s.surface.SetBadge(v.badge)
}

// commit persists the items, clears any stale inline error and returns the
// view to publish. Must be called with s.mu held.
func (s *Store) commit() view {
	if err := s.storage.Set(StorageKey, EncodeSnapshot(s.items)); err != nil {
		// The session continues in memory only.
		s.lg.Debug("Cart snapshot not persisted", zap.Error(err))
	}
	s.control.Error = ""
	return s.snapshot()
}

func (s *Store) find(id string) int {
	return slices.IndexFunc(s.items, func(it LineItem) bool { return it.ID == id })
}

// Add inserts p with quantity one, or increments the quantity when an item
// with the same id is already present. The drawer opens and the trigger icon
// pulses.
func (s *Store) Add(p Product) {
	s.mu.Lock()
	if i := s.find(p.ID); i >= 0 {
		s.items[i].Qty++
	} else {
		s.items = append(s.items, newLineItem(p))
	}
	v := s.commit()
	s.mu.Unlock()

	s.publish(v)
	s.Open()

	s.surface.Pulse(true)
	s.schedule(pulseDuration, func() { s.surface.Pulse(false) })
}

// Remove deletes the item with the given id. Unknown ids are ignored.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	i := s.find(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.items = slices.Delete(s.items, i, i+1)
	v := s.commit()
	s.mu.Unlock()

	s.publish(v)
}

// UpdateQty sets the quantity of an item. A quantity below one removes the
// item; unknown ids are ignored.
func (s *Store) UpdateQty(id string, qty int) {
	if qty < 1 {
		s.Remove(id)
		return
	}

	s.mu.Lock()
	i := s.find(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.items[i].Qty = qty
	v := s.commit()
	s.mu.Unlock()

	s.publish(v)
}

// Increment is the "+" stepper control of a row.
func (s *Store) Increment(id string) {
	s.step(id, 1)
}

// Decrement is the "−" stepper control of a row; stepping below one removes
// the item.
func (s *Store) Decrement(id string) {
	s.step(id, -1)
}

func (s *Store) step(id string, delta int) {
	s.mu.Lock()
	i := s.find(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	qty := s.items[i].Qty + delta
	s.mu.Unlock()

	s.UpdateQty(id, qty)
}

// Open shows the drawer and moves focus into it once the transition started.
func (s *Store) Open() {
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()

	s.surface.SetOpen(true)
	s.schedule(focusDelay, func() { s.surface.Focus(FocusDrawer) })
}

// Close hides the drawer and returns focus to the trigger icon.
func (s *Store) Close() {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()

	s.surface.SetOpen(false)
	s.surface.Focus(FocusTrigger)
}

// IsOpen reports whether the drawer is visible.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Count returns the sum of all quantities.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return count(s.items)
}

// Items returns a copy of the line items in display order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Subtotal returns the sum of PriceNum × Qty over all items.
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return subtotal(s.items)
}

// Drawer returns the current render model.
func (s *Store) Drawer() Drawer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return buildDrawer(s.items, s.control)
}
