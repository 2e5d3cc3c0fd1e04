package wiring

import (
	"github.com/sarchlab/mesitopo/topoerr"
)

// NoVirtualNetwork marks channels that do not travel over the network.
const NoVirtualNetwork = -1

// Virtual network sizes.
const (
	BaselineVirtualNetworks   = 3
	StreamLaneVirtualNetworks = 2
)

// NetworkBudget is the number of virtual networks of a system. Every node
// must see the same total.
type NetworkBudget struct {
	Baseline    int
	StreamLanes int
}

// NewNetworkBudget creates the budget of a system, with the stream lanes
// when stream floating is enabled.
func NewNetworkBudget(streamLanes bool) NetworkBudget {
	b := NetworkBudget{Baseline: BaselineVirtualNetworks}
	if streamLanes {
		b.StreamLanes = StreamLaneVirtualNetworks
	}

	return b
}

// Total returns the number of virtual networks.
func (b NetworkBudget) Total() int {
	return b.Baseline + b.StreamLanes
}

// VirtualNetworkOf returns the virtual network that carries the kind over
// the network.
func (b NetworkBudget) VirtualNetworkOf(kind Kind) (int, error) {
	switch kind {
	case Request:
		return 0, nil
	case Response:
		return 1, nil
	case Unblock, Forward:
		return 2, nil
	case StreamMigrate, StreamIndirect:
		if b.StreamLanes == 0 {
			return NoVirtualNetwork, topoerr.NewConfigError(kind.String(),
				"stream lanes are not part of the network budget")
		}

		if kind == StreamMigrate {
			return b.Baseline, nil
		}

		return b.Baseline + 1, nil
	default:
		return NoVirtualNetwork, topoerr.NewConfigError(kind.String(),
			"the kind does not travel over the network")
	}
}
