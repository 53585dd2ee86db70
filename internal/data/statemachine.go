package data

import (
	"fmt"
	"slices"
)

// Lifecycle is a directed graph of the status changes an entity may go through.
type Lifecycle[S ~string] struct {
	edges map[S][]S
}

// Edge declares that an entity in From may move to To.
type Edge[S ~string] struct {
	From S
	To   S
}

func NewLifecycle[S ~string](edges ...Edge[S]) Lifecycle[S] {
	l := Lifecycle[S]{edges: make(map[S][]S, len(edges))}
	for _, e := range edges {
		if !slices.Contains(l.edges[e.From], e.To) {
			l.edges[e.From] = append(l.edges[e.From], e.To)
		}
	}
	return l
}

func (l Lifecycle[S]) Allows(from, to S) bool {
	return slices.Contains(l.edges[from], to)
}

// Check returns an error when the move from -> to is not part of the lifecycle.
func (l Lifecycle[S]) Check(from, to S) error {
	if !l.Allows(from, to) {
		return fmt.Errorf("cannot transition from %s to %s", from, to)
	}
	return nil
}

// Next lists the statuses reachable in one step from status.
func (l Lifecycle[S]) Next(status S) []S {
	return slices.Clone(l.edges[status])
}
