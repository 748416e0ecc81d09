package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AsyncFlow-Sim/AsyncFlow/network"
)

func TestOrderedEdgeMap_InsertPreservesOrder(t *testing.T) {
	m := NewOrderedEdgeMap()
	m.Insert("a", &network.Runtime{})
	m.Insert("b", &network.Runtime{})
	m.Insert("c", &network.Runtime{})

	assert.Equal(t, []string{"a", "b", "c"}, m.IDs())
}

func TestOrderedEdgeMap_InsertExistingIDOverwritesInPlace(t *testing.T) {
	m := NewOrderedEdgeMap()
	first := &network.Runtime{}
	second := &network.Runtime{}
	m.Insert("a", first)
	m.Insert("b", &network.Runtime{})
	m.Insert("a", second)

	assert.Equal(t, []string{"a", "b"}, m.IDs())
	assert.Same(t, second, m.Get("a"))
}

func TestOrderedEdgeMap_RemoveThenReinsertGoesToTail(t *testing.T) {
	m := NewOrderedEdgeMap()
	rt := &network.Runtime{}
	m.Insert("a", rt)
	m.Insert("b", &network.Runtime{})

	removed, ok := m.Remove("a")
	assert.True(t, ok)
	assert.Same(t, rt, removed)
	assert.Equal(t, []string{"b"}, m.IDs())

	m.Insert("a", rt)
	assert.Equal(t, []string{"b", "a"}, m.IDs())
}

func TestOrderedEdgeMap_RemoveUnknownIDReturnsFalse(t *testing.T) {
	m := NewOrderedEdgeMap()
	_, ok := m.Remove("missing")
	assert.False(t, ok)
}

func TestOrderedEdgeMap_Contains(t *testing.T) {
	m := NewOrderedEdgeMap()
	assert.False(t, m.Contains("a"))
	m.Insert("a", &network.Runtime{})
	assert.True(t, m.Contains("a"))
}
