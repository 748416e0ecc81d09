package routing

import "github.com/AsyncFlow-Sim/AsyncFlow/network"

// OrderedEdgeMap is an insertion-ordered map<edge_id, EdgeRuntime> whose
// iteration order is contractual: round-robin cursors index into it
// positionally, and outage removal/restoration must preserve that order,
// re-inserting restored edges at the tail.
type OrderedEdgeMap struct {
	order []string
	byID  map[string]*network.Runtime
}

// NewOrderedEdgeMap creates an empty ordered map.
func NewOrderedEdgeMap() *OrderedEdgeMap {
	return &OrderedEdgeMap{byID: make(map[string]*network.Runtime)}
}

// Insert appends (id, rt) to the tail. A pre-existing id is overwritten in
// place (order unchanged) rather than duplicated.
func (m *OrderedEdgeMap) Insert(id string, rt *network.Runtime) {
	if _, exists := m.byID[id]; !exists {
		m.order = append(m.order, id)
	}
	m.byID[id] = rt
}

// Remove deletes id if present and returns its runtime and whether it was
// found, so the caller (the event-injection runtime) can stash it for
// later re-insertion at the tail.
func (m *OrderedEdgeMap) Remove(id string) (*network.Runtime, bool) {
	rt, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	delete(m.byID, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return rt, true
}

// Len returns the number of edges currently mapped.
func (m *OrderedEdgeMap) Len() int { return len(m.order) }

// IDs returns the edge IDs in insertion order. Callers must not mutate the
// returned slice.
func (m *OrderedEdgeMap) IDs() []string { return m.order }

// Get returns the runtime for id, or nil if absent.
func (m *OrderedEdgeMap) Get(id string) *network.Runtime { return m.byID[id] }

// Contains reports whether id is currently mapped.
func (m *OrderedEdgeMap) Contains(id string) bool {
	_, ok := m.byID[id]
	return ok
}
