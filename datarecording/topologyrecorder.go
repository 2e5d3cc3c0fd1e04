package datarecording

import (
	"strconv"
	"strings"

	"github.com/sarchlab/mesitopo/hierarchy"
	"github.com/sarchlab/mesitopo/topology"
)

// Table names used by RecordTopology.
const (
	BuildTable   = "topology_build"
	NodeTable    = "topology_node"
	ChannelTable = "topology_channel"
	GroupTable   = "topology_multicast_group"
)

// BuildRow describes one assembled topology.
type BuildRow struct {
	BuildID               string
	Name                  string
	Kind                  string
	MeshRows              int
	FullSystem            bool
	VirtualNetworks       int
	BlockOffsetBits       int
	BankSelectBits        int
	BankSelectLowBit      int
	DirectorySelectBits   int
	DirectorySelectLowBit int
	CoresPerRow           int
	StreamFloat           bool
}

// NodeRow is one controller.
type NodeRow struct {
	BuildID             string
	Role                string
	ID                  int
	Version             int
	ClusterID           int
	Name                string
	Size                uint64
	Assoc               int
	SkipIndexLowBit     int
	SkipIndexBits       int
	TBEs                int
	TransitionsPerCycle int
	VirtualNetworks     int
}

// ChannelRow is one channel.
type ChannelRow struct {
	BuildID        string
	ID             int
	Name           string
	Kind           string
	VirtualNetwork int
	Ordered        bool
	Source         string
	Destination    string
}

// GroupRow is one multicast group. Cores is a comma-separated list.
type GroupRow struct {
	BuildID     string
	GroupIndex  int
	Cores       string
	GroupSize   int
	IssuePolicy string
}

// CreateTopologyTables creates the tables RecordTopology writes to.
func CreateTopologyTables(r DataRecorder) {
	r.CreateTable(BuildTable, BuildRow{})
	r.CreateTable(NodeTable, NodeRow{})
	r.CreateTable(ChannelTable, ChannelRow{})
	r.CreateTable(GroupTable, GroupRow{})
}

// RecordTopology buffers the rows of a topology. The tables must have been
// created with CreateTopologyTables.
func RecordTopology(r DataRecorder, t *topology.Topology) {
	id := t.BuildID()
	m := t.AddressMap()

	r.InsertData(BuildTable, BuildRow{
		BuildID:               id,
		Name:                  t.Name(),
		Kind:                  string(t.Kind()),
		MeshRows:              t.MeshRows(),
		FullSystem:            t.FullSystem(),
		VirtualNetworks:       t.Budget().Total(),
		BlockOffsetBits:       m.BlockOffsetBits,
		BankSelectBits:        m.BankSelectBits,
		BankSelectLowBit:      m.BankSelectLowBit,
		DirectorySelectBits:   m.DirectorySelectBits,
		DirectorySelectLowBit: m.DirectorySelectLowBit,
		CoresPerRow:           m.CoresPerRow,
		StreamFloat:           t.Flags().Float,
	})

	for _, n := range t.AllNodes() {
		r.InsertData(NodeTable, nodeRow(id, n))
	}

	for _, c := range t.Channels() {
		r.InsertData(ChannelTable, ChannelRow{
			BuildID:        id,
			ID:             c.ID,
			Name:           c.Name,
			Kind:           c.Kind.String(),
			VirtualNetwork: c.VirtualNetwork,
			Ordered:        c.Ordered,
			Source:         c.From.String(),
			Destination:    c.To.String(),
		})
	}

	for _, g := range t.Groups() {
		cores := make([]string, len(g.Cores))
		for i, c := range g.Cores {
			cores[i] = strconv.Itoa(c)
		}

		r.InsertData(GroupTable, GroupRow{
			BuildID:     id,
			GroupIndex:  g.Index,
			Cores:       strings.Join(cores, ","),
			GroupSize:   g.GroupSize,
			IssuePolicy: string(g.IssuePolicy),
		})
	}
}

func nodeRow(buildID string, n hierarchy.Node) NodeRow {
	return NodeRow{
		BuildID:             buildID,
		Role:                n.Role.String(),
		ID:                  n.ID,
		Version:             n.Version,
		ClusterID:           n.ClusterID,
		Name:                n.Name,
		Size:                n.Geometry.Size,
		Assoc:               n.Geometry.Assoc,
		SkipIndexLowBit:     n.Geometry.SkipIndexLowBit,
		SkipIndexBits:       n.Geometry.SkipIndexBits,
		TBEs:                n.TBEs,
		TransitionsPerCycle: n.TransitionsPerCycle,
		VirtualNetworks:     n.VirtualNetworks,
	}
}
