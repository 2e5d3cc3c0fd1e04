// Package topology assembles a complete coherence hierarchy from a Config.
package topology

import (
	"fmt"

	"github.com/rs/xid"

	"github.com/sarchlab/mesitopo/addressing"
	"github.com/sarchlab/mesitopo/hierarchy"
	"github.com/sarchlab/mesitopo/multicast"
	"github.com/sarchlab/mesitopo/streamfloat"
	"github.com/sarchlab/mesitopo/wiring"
)

// NetworkBuilder places the assembled nodes on a physical network.
type NetworkBuilder interface {
	BuildNetwork(
		nodes []hierarchy.Node,
		kind multicast.TopologyKind,
		meshRows int,
	) error
}

// End is one end of a Channel. NodeID and NodeName are only set when Side
// is wiring.SideNode.
type End struct {
	Side     wiring.Side
	Role     hierarchy.Role
	NodeID   int
	NodeName string
}

func (e End) String() string {
	if e.Side == wiring.SideNode {
		return e.NodeName
	}

	return e.Side.String()
}

// Channel is a read-only view of a wired channel.
type Channel struct {
	ID             int
	Name           string
	Kind           wiring.Kind
	VirtualNetwork int
	Ordered        bool
	From           End
	To             End
}

func (c Channel) String() string {
	return fmt.Sprintf("%d %s(%s, %s -> %s, vnet %d)",
		c.ID, c.Name, c.Kind, c.From, c.To, c.VirtualNetwork)
}

// Sequencer is the port a core or a DMA engine issues memory requests
// through.
type Sequencer struct {
	Version int
	Name    string
	Node    hierarchy.Role
	NodeID  int
	IsIdeal bool
}

// Topology is an assembled system. It does not change after Build returns;
// all accessors return copies.
type Topology struct {
	buildID    xid.ID
	name       string
	kind       multicast.TopologyKind
	meshRows   int
	fullSystem bool

	addrMap *addressing.AddressMap
	budget  wiring.NetworkBudget
	flags   *streamfloat.Flags

	nodes         map[hierarchy.Role][]*hierarchy.Node
	all           []*hierarchy.Node
	channels      []Channel
	groups        []multicast.Group
	sequencers    []Sequencer
	dmaSequencers []Sequencer
}

// BuildID identifies this assembly.
func (t *Topology) BuildID() string {
	return t.buildID.String()
}

// String summarizes the topology in one line.
func (t *Topology) String() string {
	return fmt.Sprintf("%s (%s, %d nodes, %d channels, %d virtual networks)",
		t.name, t.kind, len(t.all), len(t.channels), t.budget.Total())
}

// Name returns the name that all nodes are named under.
func (t *Topology) Name() string {
	return t.name
}

// Kind returns the network topology kind.
func (t *Topology) Kind() multicast.TopologyKind {
	return t.kind
}

// MeshRows returns the number of mesh rows, or 0 if not a mesh.
func (t *Topology) MeshRows() int {
	return t.meshRows
}

// FullSystem tells if the system was built for full-system simulation.
func (t *Topology) FullSystem() bool {
	return t.fullSystem
}

// AddressMap returns the address partition shared by all nodes.
func (t *Topology) AddressMap() addressing.AddressMap {
	return *t.addrMap
}

// Budget returns the virtual-network budget.
func (t *Topology) Budget() wiring.NetworkBudget {
	return t.budget
}

// Flags returns the validated stream flags.
func (t *Topology) Flags() streamfloat.Flags {
	return *t.flags
}

// CoreEngine returns the stream-engine settings next to each core.
func (t *Topology) CoreEngine() streamfloat.CoreEngineParams {
	return streamfloat.CoreEngine(t.flags)
}

// copyNode returns a node that shares nothing with the assembled one. The
// copy gets its own flags and address map, so editing them cannot reach the
// topology.
func copyNode(n *hierarchy.Node) hierarchy.Node {
	c := *n
	if n.Engine != nil {
		engine := *n.Engine
		c.Engine = &engine
	}

	if n.Flags != nil {
		flags := *n.Flags
		c.Flags = &flags
	}

	if n.AddressMap != nil {
		addrMap := *n.AddressMap
		c.AddressMap = &addrMap
	}

	return c
}

func copyNodes(nodes []*hierarchy.Node) []hierarchy.Node {
	out := make([]hierarchy.Node, len(nodes))
	for i, n := range nodes {
		out[i] = copyNode(n)
	}

	return out
}

// Nodes returns the nodes of a role, ordered by ID.
func (t *Topology) Nodes(role hierarchy.Role) []hierarchy.Node {
	return copyNodes(t.nodes[role])
}

// AllNodes returns every node in creation order.
func (t *Topology) AllNodes() []hierarchy.Node {
	return copyNodes(t.all)
}

// NumNodes returns the number of nodes of a role.
func (t *Topology) NumNodes(role hierarchy.Role) int {
	return len(t.nodes[role])
}

// Node returns one node.
func (t *Topology) Node(role hierarchy.Role, id int) (hierarchy.Node, bool) {
	nodes := t.nodes[role]
	if id < 0 || id >= len(nodes) {
		return hierarchy.Node{}, false
	}

	return copyNode(nodes[id]), true
}

// Channels returns every channel in creation order.
func (t *Topology) Channels() []Channel {
	out := make([]Channel, len(t.channels))
	copy(out, t.channels)

	return out
}

// ChannelsOf returns the channels with one end on the node.
func (t *Topology) ChannelsOf(role hierarchy.Role, id int) []Channel {
	var out []Channel

	for _, c := range t.channels {
		if c.From.isNode(role, id) || c.To.isNode(role, id) {
			out = append(out, c)
		}
	}

	return out
}

func (e End) isNode(role hierarchy.Role, id int) bool {
	return e.Side == wiring.SideNode && e.Role == role && e.NodeID == id
}

// Groups returns the multicast groups, indexed by position.
func (t *Topology) Groups() []multicast.Group {
	out := make([]multicast.Group, len(t.groups))
	for i, g := range t.groups {
		out[i] = g
		out[i].Cores = append([]int(nil), g.Cores...)
	}

	return out
}

// Sequencers returns the core sequencers, indexed by core.
func (t *Topology) Sequencers() []Sequencer {
	return append([]Sequencer(nil), t.sequencers...)
}

// DMASequencers returns the DMA sequencers, indexed by DMA port.
func (t *Topology) DMASequencers() []Sequencer {
	return append([]Sequencer(nil), t.dmaSequencers...)
}

// BankOwner returns the name of the L2 bank that serves an address for the
// cores of a cluster.
func (t *Topology) BankOwner(address uint64, clusterID int) string {
	first := clusterID * t.addrMap.BanksPerCluster
	banks := t.nodes[hierarchy.L2][first : first+t.addrMap.BanksPerCluster]

	names := make([]string, len(banks))
	for i, b := range banks {
		names[i] = b.Name
	}

	return addressing.NewBankOwnerMapper(t.addrMap, names).Find(address)
}

// DirectoryOwner returns the name of the home directory of an address.
func (t *Topology) DirectoryOwner(address uint64) string {
	dirs := t.nodes[hierarchy.Directory]

	names := make([]string, len(dirs))
	for i, d := range dirs {
		names[i] = d.Name
	}

	return addressing.NewDirectoryOwnerMapper(t.addrMap, names).Find(address)
}
