package wiring

import (
	"fmt"

	"github.com/sarchlab/mesitopo/hierarchy"
)

// Endpoint is one end of a channel.
type Endpoint struct {
	Side Side
	Node *hierarchy.Node
}

// NodeEnd is an end attached to a controller.
func NodeEnd(n *hierarchy.Node) Endpoint {
	return Endpoint{Side: SideNode, Node: n}
}

// Ends that are not controllers.
var (
	Network    = Endpoint{Side: SideNetwork}
	Sequencer  = Endpoint{Side: SideSequencer}
	Memory     = Endpoint{Side: SideMemory}
	Prefetcher = Endpoint{Side: SidePrefetcher}
)

func (e Endpoint) String() string {
	if e.Side == SideNode && e.Node != nil {
		return e.Node.Name
	}

	return e.Side.String()
}

// Channel is a message buffer between two ends.
type Channel struct {
	ID             int
	Name           string
	Kind           Kind
	VirtualNetwork int
	Ordered        bool
	From           Endpoint
	To             Endpoint
}

// OnNetwork tells if the channel travels over the network.
func (c *Channel) OnNetwork() bool {
	return c.VirtualNetwork != NoVirtualNetwork
}

func (c *Channel) String() string {
	return fmt.Sprintf("%s(%s, %s -> %s, vnet %d)",
		c.Name, c.Kind, c.From, c.To, c.VirtualNetwork)
}

// attachment identifies one use of a node's channel slots.
type attachment struct {
	kind Kind
	dir  Direction
	peer Side
}
