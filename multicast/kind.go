// Package multicast groups cores into the multicast sets that floated streams
// fan out to.
package multicast

import (
	"github.com/sarchlab/mesitopo/topoerr"
)

// TopologyKind names the physical network topology chosen for a system.
type TopologyKind string

// Supported topology kinds.
const (
	MeshXY           TopologyKind = "Mesh_XY"
	MeshDirCornersXY TopologyKind = "MeshDirCorners_XY"
	MeshDirXY        TopologyKind = "MeshDir_XY"
	Pt2Pt            TopologyKind = "Pt2Pt"
	Crossbar         TopologyKind = "Crossbar"
	CrossbarGarnet   TopologyKind = "CrossbarGarnet"
	Cluster          TopologyKind = "Cluster"
)

var knownKinds = []TopologyKind{
	MeshXY, MeshDirCornersXY, MeshDirXY, Pt2Pt, Crossbar, CrossbarGarnet,
	Cluster,
}

// IsMeshLike tells if routers are laid out in rows and columns.
func (k TopologyKind) IsMeshLike() bool {
	switch k {
	case MeshXY, MeshDirCornersXY, MeshDirXY:
		return true
	default:
		return false
	}
}

// ParseTopologyKind converts a topology name into a TopologyKind.
func ParseTopologyKind(s string) (TopologyKind, error) {
	for _, k := range knownKinds {
		if string(k) == s {
			return k, nil
		}
	}

	return "", topoerr.NewConfigError("topology", "unknown topology %q", s)
}

// IssuePolicy decides when a multicast request can be issued to the group.
type IssuePolicy string

// Supported issue policies.
const (
	IssueAny            IssuePolicy = "any"
	IssueFirstAllocated IssuePolicy = "first_allocated"
	IssueFirst          IssuePolicy = "first"
)

// ParseIssuePolicy converts a policy name into an IssuePolicy. The empty
// string selects IssueFirst.
func ParseIssuePolicy(s string) (IssuePolicy, error) {
	switch IssuePolicy(s) {
	case "":
		return IssueFirst, nil
	case IssueAny, IssueFirstAllocated, IssueFirst:
		return IssuePolicy(s), nil
	default:
		return "", topoerr.NewConfigError(
			"llc_multicast_issue_policy", "unknown policy %q", s)
	}
}
