package hierarchy

import (
	"github.com/sarchlab/mesitopo/topoerr"
)

// Registry keeps the nodes of one system, indexed by role.
type Registry struct {
	byRole map[Role][]*Node
	all    []*Node
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byRole: make(map[Role][]*Node)}
}

// Add registers a node. The node ID must be the next free ID of its role.
func (r *Registry) Add(n *Node) error {
	next := len(r.byRole[n.Role])
	if n.ID != next {
		return topoerr.NewInvariantViolation("contiguous node ids",
			"%s got id %d, expecting %d", n.Role, n.ID, next)
	}

	r.byRole[n.Role] = append(r.byRole[n.Role], n)
	r.all = append(r.all, n)

	return nil
}

// Count returns the number of nodes of the role.
func (r *Registry) Count(role Role) int {
	return len(r.byRole[role])
}

// Nodes returns the nodes of the role ordered by ID.
func (r *Registry) Nodes(role Role) []*Node {
	nodes := make([]*Node, len(r.byRole[role]))
	copy(nodes, r.byRole[role])

	return nodes
}

// All returns every node in creation order.
func (r *Registry) All() []*Node {
	nodes := make([]*Node, len(r.all))
	copy(nodes, r.all)

	return nodes
}

// Lookup finds a node by role and ID.
func (r *Registry) Lookup(role Role, id int) (*Node, bool) {
	nodes := r.byRole[role]
	if id < 0 || id >= len(nodes) {
		return nil, false
	}

	return nodes[id], true
}

// Verify checks that every role holds IDs 0..n-1 in order.
func (r *Registry) Verify() error {
	for _, role := range Roles {
		for i, n := range r.byRole[role] {
			if n.ID != i || n.Role != role {
				return topoerr.NewInvariantViolation("contiguous node ids",
					"%s slot %d holds %s id %d", role, i, n.Role, n.ID)
			}
		}
	}

	return nil
}
