// Package binder assigns page-addressable content units to the category
// nodes whose page ranges contain them.
package binder

import (
	"fmt"
	"sort"

	"github.com/dgallion1/docstruct/internal/tree"
)

// Unit is the part of a content unit binding looks at. PageNumber <= 0
// means the unit has no resolvable page.
type Unit struct {
	ID         int64
	PageNumber int
}

// Diagnostic records a unit whose page fell in more than one node at the
// deepest matching depth.
type Diagnostic struct {
	UnitID  int64   `json:"unit_id"`
	Page    int     `json:"page"`
	Chosen  int64   `json:"chosen"`
	Tied    []int64 `json:"tied"`
	Message string  `json:"message"`
}

// Result maps unit ids to category ids. A nil value means unassigned.
type Result struct {
	Assignments map[int64]*int64 `json:"assignments"`
	Assigned    int              `json:"assigned"`
	Unassigned  int              `json:"unassigned"`
	Diagnostics []Diagnostic     `json:"diagnostics"`
}

// Bind assigns each unit to the deepest node containing its page. Ties at
// the same depth go to the smallest node id and are reported. Units outside
// every range stay unassigned.
func Bind(nodes []tree.Node, units []Unit) Result {
	candidates := make([]tree.Node, 0, len(nodes))
	for _, n := range nodes {
		if !n.Pageless() {
			candidates = append(candidates, n)
		}
	}
	// Deepest first, then smallest id, so the first match per depth wins.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Depth != candidates[j].Depth {
			return candidates[i].Depth > candidates[j].Depth
		}
		return candidates[i].ID < candidates[j].ID
	})

	res := Result{
		Assignments: make(map[int64]*int64, len(units)),
		Diagnostics: []Diagnostic{},
	}
	for _, u := range units {
		chosen, tied := match(candidates, u.PageNumber)
		if chosen == nil {
			res.Assignments[u.ID] = nil
			res.Unassigned++
			continue
		}
		id := chosen.ID
		res.Assignments[u.ID] = &id
		res.Assigned++
		if len(tied) > 0 {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				UnitID:  u.ID,
				Page:    u.PageNumber,
				Chosen:  id,
				Tied:    tied,
				Message: fmt.Sprintf("page %d falls in %d nodes at depth %d", u.PageNumber, len(tied)+1, chosen.Depth),
			})
		}
	}
	return res
}

// match returns the winning node and the ids of other nodes tied with it.
func match(candidates []tree.Node, page int) (*tree.Node, []int64) {
	if page <= 0 {
		return nil, nil
	}
	var (
		chosen *tree.Node
		tied   []int64
	)
	for i := range candidates {
		n := &candidates[i]
		if chosen != nil && n.Depth < chosen.Depth {
			break
		}
		if !n.Contains(page) {
			continue
		}
		if chosen == nil {
			chosen = n
			continue
		}
		tied = append(tied, n.ID)
	}
	return chosen, tied
}
