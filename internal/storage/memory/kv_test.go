package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKV(t *testing.T) {
	s := NewKV()

	_, ok, err := s.Get("unseelie_cart")
	require.NoError(t, err)
	assert.False(t, ok)

	value := []byte(`[{"id":"a","qty":1}]`)
	require.NoError(t, s.Set("unseelie_cart", value))
	value[0] = 'X'

	got, ok, err := s.Get("unseelie_cart")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"a","qty":1}]`, string(got), "stored value must not alias the caller's slice")
}
