package wiring

import (
	"github.com/sarchlab/mesitopo/hierarchy"
	"github.com/sarchlab/mesitopo/naming"
	"github.com/sarchlab/mesitopo/topoerr"
)

// Engine creates channels between the nodes of one registry.
type Engine struct {
	budget   NetworkBudget
	registry *hierarchy.Registry
	channels []*Channel
	attached map[*hierarchy.Node]map[attachment]*Channel
}

// NewEngine creates an engine for the nodes of the registry.
func NewEngine(budget NetworkBudget, registry *hierarchy.Registry) *Engine {
	return &Engine{
		budget:   budget,
		registry: registry,
		attached: make(map[*hierarchy.Node]map[attachment]*Channel),
	}
}

// Budget returns the network budget the engine assigns virtual networks from.
func (e *Engine) Budget() NetworkBudget {
	return e.budget
}

// Connect creates a channel from one end to another. The channel is named
// after the node that owns it, which is the From node when both ends are
// nodes. Each node can only have one channel per kind, direction, and peer
// side.
func (e *Engine) Connect(
	elem string,
	from, to Endpoint,
	kind Kind,
	ordered bool,
) (*Channel, error) {
	if err := e.endMustBeKnown(from); err != nil {
		return nil, err
	}

	if err := e.endMustBeKnown(to); err != nil {
		return nil, err
	}

	owner := from.Node
	if from.Side != SideNode {
		owner = to.Node
	}

	if owner == nil {
		return nil, topoerr.NewConfigError(elem,
			"a channel needs a node on at least one end")
	}

	vnet, err := e.virtualNetwork(from, to, kind)
	if err != nil {
		return nil, err
	}

	c := &Channel{
		ID:             len(e.channels),
		Name:           naming.Build(owner.Name, elem),
		Kind:           kind,
		VirtualNetwork: vnet,
		Ordered:        ordered,
		From:           from,
		To:             to,
	}

	if err := naming.Validate(c.Name); err != nil {
		return nil, topoerr.NewInvariantViolation("channel names", "%v", err)
	}

	if err := e.attach(c); err != nil {
		return nil, err
	}

	e.channels = append(e.channels, c)

	return c, nil
}

func (e *Engine) endMustBeKnown(end Endpoint) error {
	switch end.Side {
	case SideUnset:
		return topoerr.NewConfigError("channel", "channel end is not set")
	case SideNode:
		if end.Node == nil {
			return topoerr.NewConfigError("channel", "node end without a node")
		}

		n, ok := e.registry.Lookup(end.Node.Role, end.Node.ID)
		if !ok || n != end.Node {
			return topoerr.NewConfigError(end.Node.Name,
				"node is not registered")
		}
	}

	return nil
}

func (e *Engine) virtualNetwork(from, to Endpoint, kind Kind) (int, error) {
	if from.Side != SideNetwork && to.Side != SideNetwork {
		return NoVirtualNetwork, nil
	}

	return e.budget.VirtualNetworkOf(kind)
}

func (e *Engine) attach(c *Channel) error {
	type slot struct {
		node *hierarchy.Node
		key  attachment
	}

	var slots []slot
	if c.From.Side == SideNode {
		key := attachment{kind: c.Kind, dir: Out, peer: c.To.Side}
		slots = append(slots, slot{node: c.From.Node, key: key})
	}

	if c.To.Side == SideNode {
		key := attachment{kind: c.Kind, dir: In, peer: c.From.Side}
		slots = append(slots, slot{node: c.To.Node, key: key})
	}

	for _, s := range slots {
		if prev, found := e.attached[s.node][s.key]; found {
			return topoerr.NewConfigError(c.Name,
				"%s already has a %s %s channel with the %s: %s",
				s.node.Name, s.key.kind, s.key.dir, s.key.peer, prev.Name)
		}
	}

	for _, s := range slots {
		if e.attached[s.node] == nil {
			e.attached[s.node] = make(map[attachment]*Channel)
		}

		e.attached[s.node][s.key] = c
	}

	return nil
}

// Channels returns every channel in creation order.
func (e *Engine) Channels() []*Channel {
	channels := make([]*Channel, len(e.channels))
	copy(channels, e.channels)

	return channels
}

// ChannelsOf returns the channels attached to the node.
func (e *Engine) ChannelsOf(n *hierarchy.Node) []*Channel {
	var channels []*Channel

	for _, c := range e.channels {
		if c.From.Node == n || c.To.Node == n {
			channels = append(channels, c)
		}
	}

	return channels
}
