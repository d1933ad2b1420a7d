// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package compiler

import "sort"

// topoSort runs Kahn's algorithm over the pass DAG induced by links'
// IsDAGEdge edges, tie-broken by recording
// order (stable) so that passes with no ordering constraint between
// them keep the order the caller declared them in. Returns
// ErrCyclicDependency if the graph is not a DAG.
func topoSort(npass int, links []ChainLink) ([]int, error) {
	adj := make([][]int, npass)
	indeg := make([]int, npass)
	seen := make(map[[2]int]bool)
	for _, l := range links {
		if !l.IsDAGEdge || l.ProducerPass == noPass || l.ConsumerPass == noPass {
			continue
		}
		key := [2]int{l.ProducerPass, l.ConsumerPass}
		if l.ProducerPass == l.ConsumerPass || seen[key] {
			continue
		}
		seen[key] = true
		adj[l.ProducerPass] = append(adj[l.ProducerPass], l.ConsumerPass)
		indeg[l.ConsumerPass]++
	}

	ready := make([]int, 0, npass)
	for i := 0; i < npass; i++ {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	sort.Ints(ready)

	order := make([]int, 0, npass)
	for len(ready) > 0 {
		// Stable tie-break: always take the smallest (earliest
		// recorded) ready index.
		sort.Ints(ready)
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, m := range adj[n] {
			indeg[m]--
			if indeg[m] == 0 {
				ready = append(ready, m)
			}
		}
	}
	if len(order) != npass {
		return nil, ErrCyclicDependency
	}
	return order, nil
}
