package decompose

import (
	"fmt"
	"sort"

	"github.com/eppie/foresight/internal/model"
	"github.com/eppie/foresight/internal/oracle"
)

// Graph is a dependency graph of reasoning sub-questions, built from a
// single oracle decomposition call.
//
// In strict mode (the default) construction rejects duplicate ids,
// dangling dependency references and cycles as contract violations.
// Lenient mode reproduces the historical behavior of treating unknown
// dependency ids as no-op edges; cycles still fail, since depth would
// be undefined.
type Graph struct {
	nodes  map[int]*model.SubQuestion
	strict bool
}

// NewGraph builds and validates a graph from oracle output.
func NewGraph(subs []model.SubQuestion, strict bool) (*Graph, error) {
	nodes := make(map[int]*model.SubQuestion, len(subs))
	for i := range subs {
		sq := subs[i]
		if _, dup := nodes[sq.ID]; dup {
			return nil, &oracle.ContractError{
				Op:     "decompose",
				Reason: fmt.Sprintf("duplicate sub-question id %d", sq.ID),
			}
		}
		nodes[sq.ID] = &sq
	}

	g := &Graph{nodes: nodes, strict: strict}

	if strict {
		for _, sq := range nodes {
			for _, dep := range sq.Dependencies {
				if _, ok := nodes[dep]; !ok {
					return nil, &oracle.ContractError{
						Op:     "decompose",
						Reason: fmt.Sprintf("sub-question %d depends on unknown id %d", sq.ID, dep),
					}
				}
			}
		}
	}

	// Depth doubles as cycle detection; a cycle is invalid in both modes.
	if _, err := g.LongestPathDepth(); err != nil {
		return nil, err
	}

	return g, nil
}

// Len returns the number of sub-questions.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Independent returns the sub-questions with no dependencies, in id
// order.
func (g *Graph) Independent() []*model.SubQuestion {
	var out []*model.SubQuestion
	for _, sq := range g.nodes {
		if len(sq.Dependencies) == 0 {
			out = append(out, sq)
		}
	}
	sortByID(out)
	return out
}

// Dependent returns the sub-questions with at least one dependency, in
// id order.
func (g *Graph) Dependent() []*model.SubQuestion {
	var out []*model.SubQuestion
	for _, sq := range g.nodes {
		if len(sq.Dependencies) > 0 {
			out = append(out, sq)
		}
	}
	sortByID(out)
	return out
}

// Snapshot copies all sub-questions in id order, for the audit trail.
func (g *Graph) Snapshot() []model.SubQuestion {
	ptrs := make([]*model.SubQuestion, 0, len(g.nodes))
	for _, sq := range g.nodes {
		ptrs = append(ptrs, sq)
	}
	sortByID(ptrs)

	out := make([]model.SubQuestion, len(ptrs))
	for i, sq := range ptrs {
		out[i] = *sq
	}
	return out
}

// LongestPathDepth computes the longest dependency chain: independent
// nodes have depth 1, dependent nodes 1 + the max depth over their
// dependency edges. Memoized depth-first traversal, O(n). An empty
// graph has depth 0.
func (g *Graph) LongestPathDepth() (int, error) {
	memo := make(map[int]int, len(g.nodes))
	visiting := make(map[int]bool, len(g.nodes))

	maxDepth := 0
	for id := range g.nodes {
		depth, err := g.depth(id, memo, visiting)
		if err != nil {
			return 0, err
		}
		if depth > maxDepth {
			maxDepth = depth
		}
	}
	return maxDepth, nil
}

func (g *Graph) depth(id int, memo map[int]int, visiting map[int]bool) (int, error) {
	if d, ok := memo[id]; ok {
		return d, nil
	}
	if visiting[id] {
		return 0, &oracle.ContractError{
			Op:     "decompose",
			Reason: fmt.Sprintf("dependency cycle through sub-question %d", id),
		}
	}

	sq := g.nodes[id]
	if len(sq.Dependencies) == 0 {
		memo[id] = 1
		return 1, nil
	}

	visiting[id] = true
	defer delete(visiting, id)

	maxPrev := 0
	for _, dep := range sq.Dependencies {
		if _, ok := g.nodes[dep]; !ok {
			// Only reachable in lenient mode: unknown ids are no-op edges.
			continue
		}
		d, err := g.depth(dep, memo, visiting)
		if err != nil {
			return 0, err
		}
		if d > maxPrev {
			maxPrev = d
		}
	}

	memo[id] = 1 + maxPrev
	return memo[id], nil
}

func sortByID(subs []*model.SubQuestion) {
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
}
