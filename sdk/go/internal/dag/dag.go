// Package dag provides the cycle detection the config package uses to validate task dependency
// graphs before they are ever submitted to a server.
package dag

import "errors"

var (
	ErrEntityExists     = errors.New("dag: node already exists")
	ErrEntityNotFound   = errors.New("dag: node not found")
	ErrEdgeCreatesCycle = errors.New("dag: edge would create a cycle")
)

type node struct {
	id    string
	edges map[string]struct{}
}

// DAG is a directed acyclic graph keyed by node id.
type DAG map[string]*node

func New() DAG {
	return DAG{}
}

func (dag DAG) AddNode(id string) error {
	if _, exists := dag[id]; exists {
		return ErrEntityExists
	}

	dag[id] = &node{
		id:    id,
		edges: map[string]struct{}{},
	}

	return nil
}

// AddEdge registers a directed edge from node `from` to node `to`. Edges that would introduce a
// cycle are rejected.
func (dag DAG) AddEdge(from, to string) error {
	fromNode, exists := dag[from]
	if !exists {
		return ErrEntityNotFound
	}

	if _, exists := dag[to]; !exists {
		return ErrEntityNotFound
	}

	if dag.isCyclic(from, to) {
		return ErrEdgeCreatesCycle
	}

	fromNode.edges[to] = struct{}{}

	return nil
}

// isCyclic walks the graph from `to` looking for a path back to `from`.
func (dag DAG) isCyclic(from, to string) bool {
	if from == to {
		return true
	}

	toNode := dag[to]
	for edge := range toNode.edges {
		if dag.isCyclic(from, edge) {
			return true
		}
	}

	return false
}
