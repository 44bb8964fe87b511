package store

import (
	"fmt"
	"os"

	"mnemo/internal/logging"
)

// Edge is one weighted relationship from a unit to another.
type Edge struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

// Link records a symmetric relationship between two units, keeping the
// stronger weight when the pair is already linked, and persists the graph
// file. Called by retrieval when a similarity computation discovers a
// strong pair.
func (s *FileStore) Link(a, b string, weight float64) error {
	if a == b {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.units[a]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, a)
	}
	if _, ok := s.units[b]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, b)
	}

	changed := s.upsertEdge(a, b, weight)
	changed = s.upsertEdge(b, a, weight) || changed
	if !changed {
		return nil
	}
	if err := s.saveGraphLocked(); err != nil {
		return fmt.Errorf("failed to persist relationship graph: %w", err)
	}
	logging.GraphDebug("Linked %s <-> %s (weight=%.3f)", shortID(a), shortID(b), weight)
	return nil
}

func (s *FileStore) upsertEdge(from, to string, weight float64) bool {
	for i, e := range s.graph[from] {
		if e.ID == to {
			if weight > e.Weight {
				s.graph[from][i].Weight = weight
				return true
			}
			return false
		}
	}
	s.graph[from] = append(s.graph[from], Edge{ID: to, Weight: weight})
	return true
}

// Edges returns a copy of the adjacency list for a unit.
func (s *FileStore) Edges(id string) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Edge(nil), s.graph[id]...)
}

// Degrees returns each unit's edge count and the maximum degree observed.
// The importance model normalizes centrality against the maximum.
func (s *FileStore) Degrees() (degrees map[string]int, max int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	degrees = make(map[string]int, len(s.graph))
	for id, edges := range s.graph {
		degrees[id] = len(edges)
		if len(edges) > max {
			max = len(edges)
		}
	}
	return degrees, max
}

// LinkThreshold returns the similarity floor for recording an edge.
func (s *FileStore) LinkThreshold() float64 { return s.linkThreshold }

// saveGraphLocked writes graph.json. Caller holds s.mu.
func (s *FileStore) saveGraphLocked() error {
	return atomicWriteJSON(s.graphPath(), s.graph)
}

// loadGraph reads graph.json if present. A corrupt graph is recoverable
// state: it is rebuilt over time from retrieval, so load logs and starts
// empty rather than failing.
func (s *FileStore) loadGraph() {
	data, err := os.ReadFile(s.graphPath())
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Get(logging.CategoryGraph).Warn("Failed to read graph file: %v", err)
		}
		return
	}
	graph := make(map[string][]Edge)
	if err := unmarshalStrict(data, &graph); err != nil {
		logging.Get(logging.CategoryGraph).Warn("Corrupt graph file, starting empty: %v", err)
		return
	}
	s.graph = graph
	logging.Graph("Loaded relationship graph: %d nodes", len(graph))
}
