package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidateFiresCallbackOnce(t *testing.T) {
	m := NewManager()
	calls := 0
	m.OnInvalidated(func() { calls++ })

	m.SetToken("tok")
	m.Invalidate()
	m.Invalidate()
	m.Invalidate()

	assert.Equal(t, 1, calls, "repeated invalidations must not re-fire the callback")
	assert.Empty(t, m.Token(), "cached token must be discarded")
}

func TestClearRearmsGuard(t *testing.T) {
	m := NewManager()
	calls := 0
	m.OnInvalidated(func() { calls++ })

	m.SetToken("tok")
	m.Invalidate()
	m.Clear()
	m.SetToken("tok2")
	m.Invalidate()

	assert.Equal(t, 2, calls)
}

func TestSetTokenRearmsGuard(t *testing.T) {
	m := NewManager()
	calls := 0
	m.OnInvalidated(func() { calls++ })

	m.Invalidate()
	m.SetToken("fresh")
	assert.Equal(t, "fresh", m.Token())

	m.Invalidate()
	assert.Equal(t, 2, calls)
	assert.Empty(t, m.Token())
}

func TestInvalidateWithoutCallback(t *testing.T) {
	m := NewManager()
	m.SetToken("tok")
	assert.NotPanics(t, func() { m.Invalidate() })
}
