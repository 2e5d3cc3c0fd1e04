package wiring

import (
	"github.com/sarchlab/mesitopo/hierarchy"
	"github.com/sarchlab/mesitopo/topoerr"
)

// requirement is a channel slot that every node of a role must fill.
type requirement struct {
	kind    Kind
	dir     Direction
	peer    Side
	ordered bool
}

var baseRequirements = map[hierarchy.Role][]requirement{
	hierarchy.L0: {
		{kind: Mandatory, dir: In, peer: SideSequencer},
		{kind: Prefetch, dir: In, peer: SidePrefetcher},
		{kind: Link, dir: Out, peer: SideNode},
		{kind: Link, dir: In, peer: SideNode},
	},
	hierarchy.L1: {
		{kind: Link, dir: In, peer: SideNode},
		{kind: Link, dir: Out, peer: SideNode},
		{kind: Request, dir: Out, peer: SideNetwork},
		{kind: Response, dir: Out, peer: SideNetwork},
		{kind: Unblock, dir: Out, peer: SideNetwork},
		{kind: Forward, dir: In, peer: SideNetwork},
		{kind: Response, dir: In, peer: SideNetwork},
		{kind: Prefetch, dir: In, peer: SidePrefetcher},
	},
	hierarchy.L2: {
		{kind: Request, dir: Out, peer: SideNetwork},
		{kind: Forward, dir: Out, peer: SideNetwork},
		{kind: Response, dir: Out, peer: SideNetwork},
		{kind: Request, dir: In, peer: SideNetwork},
		{kind: Response, dir: In, peer: SideNetwork},
		{kind: Unblock, dir: In, peer: SideNetwork},
	},
	hierarchy.Directory: {
		{kind: Request, dir: In, peer: SideNetwork},
		{kind: Response, dir: In, peer: SideNetwork},
		{kind: Response, dir: Out, peer: SideNetwork},
		{kind: Forward, dir: Out, peer: SideNetwork},
		{kind: Request, dir: Out, peer: SideMemory},
		{kind: Response, dir: In, peer: SideMemory},
	},
	hierarchy.DMA: {
		{kind: Mandatory, dir: In, peer: SideSequencer},
		{kind: Response, dir: In, peer: SideNetwork, ordered: true},
		{kind: Request, dir: Out, peer: SideNetwork},
	},
	hierarchy.IO: {
		{kind: Mandatory, dir: In, peer: SideSequencer},
		{kind: Response, dir: In, peer: SideNetwork, ordered: true},
		{kind: Request, dir: Out, peer: SideNetwork},
	},
}

var streamLaneRequirements = []requirement{
	{kind: StreamMigrate, dir: Out, peer: SideNetwork},
	{kind: StreamMigrate, dir: In, peer: SideNetwork},
	{kind: StreamIndirect, dir: Out, peer: SideNetwork},
	{kind: StreamIndirect, dir: In, peer: SideNetwork},
}

func (e *Engine) requirementsOf(role hierarchy.Role) []requirement {
	reqs := baseRequirements[role]
	if e.budget.StreamLanes > 0 && role.HasStreamEngine() {
		reqs = append(append([]requirement{}, reqs...),
			streamLaneRequirements...)
	}

	return reqs
}

// VerifyComplete checks that every node fills all the channel slots of its
// role, that every channel has both ends attached to known nodes, and that
// all nodes agree on the virtual-network total.
func (e *Engine) VerifyComplete(nodes []*hierarchy.Node) error {
	for _, c := range e.channels {
		if err := e.channelMustBeComplete(c); err != nil {
			return err
		}
	}

	for _, n := range nodes {
		if n.VirtualNetworks != e.budget.Total() {
			return topoerr.NewInvariantViolation("uniform network budget",
				"%s sees %d virtual networks, expecting %d",
				n.Name, n.VirtualNetworks, e.budget.Total())
		}

		if err := e.nodeMustBeComplete(n); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) channelMustBeComplete(c *Channel) error {
	for _, end := range []Endpoint{c.From, c.To} {
		if end.Side == SideUnset {
			return topoerr.NewConfigError(c.Name, "channel has a dangling end")
		}

		if end.Side != SideNode {
			continue
		}

		n, ok := e.registry.Lookup(end.Node.Role, end.Node.ID)
		if !ok || n != end.Node {
			return topoerr.NewConfigError(c.Name,
				"channel points to unregistered node %s", end.Node.Name)
		}
	}

	return nil
}

func (e *Engine) nodeMustBeComplete(n *hierarchy.Node) error {
	for _, r := range e.requirementsOf(n.Role) {
		key := attachment{kind: r.kind, dir: r.dir, peer: r.peer}

		c, found := e.attached[n][key]
		if !found {
			return topoerr.NewConfigError(n.Name,
				"missing the %s %s channel with the %s", r.kind, r.dir, r.peer)
		}

		if r.ordered && !c.Ordered {
			return topoerr.NewConfigError(c.Name, "channel must be ordered")
		}
	}

	return nil
}
