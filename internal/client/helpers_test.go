package client

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xenking/unseelie-shop/internal/domain/cart"
)

type memStorage map[string][]byte

func (m memStorage) Get(key string) ([]byte, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memStorage) Set(key string, value []byte) error {
	m[key] = value
	return nil
}

type nopSurface struct{}

func (nopSurface) Render(cart.Drawer) {}
func (nopSurface) SetBadge(cart.Badge) {}
func (nopSurface) SetOpen(bool) {}
func (nopSurface) Focus(cart.FocusTarget) {}
func (nopSurface) Pulse(bool) {}
func (nopSurface) Navigate(string) {}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
