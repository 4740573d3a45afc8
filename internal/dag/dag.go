// Package dag is used to verify and map out directed acyclic graph implementations. This helps us verify that user's
// task dependencies actually work as a DAG and avoid entering in any cycles.
package dag

import (
	"errors"
)

type DAG map[string]Node

type Node struct {
	ID    string
	Edges []string
}

var (
	// ErrEntityNotFound is returned when a certain entity could not be located.
	ErrEntityNotFound = errors.New("dag: entity not found")

	// ErrEntityExists is returned when a certain entity was located but not meant to be.
	ErrEntityExists = errors.New("dag: entity already exists")

	// ErrPreconditionFailure is returned when there was a validation error with the parameters passed.
	ErrPreconditionFailure = errors.New("dag: parameters did not pass validation")

	// ErrEdgeCreatesCycle is returned when the introduction of an edge would create a cycle.
	ErrEdgeCreatesCycle = errors.New("dag: edge would create a cycle")
)

func New() DAG {
	return map[string]Node{}
}

func (dag DAG) AddNode(id string) error {
	_, exists := dag[id]
	if exists {
		return ErrEntityExists
	}

	dag[id] = Node{ID: id}
	return nil
}

// AddEdge records a dependency pointing from parent to child. The edge is rejected if either
// node is missing or if the child can already reach the parent.
func (dag DAG) AddEdge(from, to string) error {
	if _, exists := dag[from]; !exists {
		return ErrEntityNotFound
	}

	if _, exists := dag[to]; !exists {
		return ErrEntityNotFound
	}

	if from == to || dag.isReachable(to, from) {
		return ErrEdgeCreatesCycle
	}

	node := dag[from]
	node.Edges = append(node.Edges, to)
	dag[from] = node
	return nil
}

func (dag DAG) Exists(id string) bool {
	_, exists := dag[id]
	return exists
}

func (dag DAG) Edges(id string) ([]string, error) {
	if _, exists := dag[id]; !exists {
		return nil, ErrEntityNotFound
	}
	return dag[id].Edges, nil
}

// isReachable walks edges depth first looking for a path from start to target.
func (dag DAG) isReachable(start, target string) bool {
	visited := map[string]struct{}{}

	var walk func(id string) bool
	walk = func(id string) bool {
		if id == target {
			return true
		}

		if _, seen := visited[id]; seen {
			return false
		}
		visited[id] = struct{}{}

		for _, edge := range dag[id].Edges {
			if walk(edge) {
				return true
			}
		}

		return false
	}

	return walk(start)
}
