package db

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/models"
)

// MemoryStore is an in-process graph store with the same write semantics as
// the SurrealDB client. It backs dry runs and tests.
type MemoryStore struct {
	mu     sync.Mutex
	nodes  map[models.NodeRef]map[string]any
	owners map[models.NodeRef]string
	edges  map[models.Edge]struct{}
	writes int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:  make(map[models.NodeRef]map[string]any),
		owners: make(map[models.NodeRef]string),
		edges:  make(map[models.Edge]struct{}),
	}
}

// Acquire implements the session pool contract; memory sessions are free.
func (m *MemoryStore) Acquire(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return memSession{m}, nil
}

type memSession struct{ m *MemoryStore }

func (s memSession) Close() {}

func (s memSession) WriteFragment(ctx context.Context, frag models.Fragment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()

	for e := range m.edges {
		if e.Source == frag.Source {
			delete(m.edges, e)
		}
	}

	current := make(map[models.NodeRef]struct{})
	for _, n := range frag.Nodes {
		props, ok := m.nodes[n.NodeRef]
		if !ok {
			props = make(map[string]any, len(n.Props))
			m.nodes[n.NodeRef] = props
		}
		maps.Copy(props, n.Props)
		if n.Table == models.TableDocument {
			m.owners[n.NodeRef] = frag.Source
			current[n.NodeRef] = struct{}{}
		}
	}
	for ref, owner := range m.owners {
		if _, ok := current[ref]; owner == frag.Source && !ok {
			delete(m.nodes, ref)
			delete(m.owners, ref)
		}
	}

	for _, e := range frag.Edges {
		e.Source = frag.Source
		m.edges[e] = struct{}{}
	}
	m.writes++
	return nil
}

// Graph is a sorted, point-in-time copy of a MemoryStore.
type Graph struct {
	Nodes []models.Node
	Edges []models.Edge
}

// Snapshot returns the stored graph in a stable order.
func (m *MemoryStore) Snapshot() Graph {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := Graph{
		Nodes: make([]models.Node, 0, len(m.nodes)),
		Edges: make([]models.Edge, 0, len(m.edges)),
	}
	for ref, props := range m.nodes {
		g.Nodes = append(g.Nodes, models.Node{NodeRef: ref, Props: maps.Clone(props)})
	}
	for e := range m.edges {
		g.Edges = append(g.Edges, e)
	}

	slices.SortFunc(g.Nodes, func(a, b models.Node) int { return compareRef(a.NodeRef, b.NodeRef) })
	slices.SortFunc(g.Edges, func(a, b models.Edge) int {
		return cmp.Or(
			cmp.Compare(a.Source, b.Source),
			cmp.Compare(a.Rel, b.Rel),
			compareRef(a.From, b.From),
			compareRef(a.To, b.To),
		)
	})
	return g
}

// Writes returns how many fragments have been written.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func compareRef(a, b models.NodeRef) int {
	return cmp.Or(cmp.Compare(a.Table, b.Table), cmp.Compare(a.Key, b.Key))
}
