package multicast

import (
	"github.com/sarchlab/mesitopo/topoerr"
)

// A Group is a set of cores that one LLC bank can reach with a single
// multicast message.
type Group struct {
	Index       int
	Cores       []int
	GroupSize   int
	IssuePolicy IssuePolicy
}

// Contains tells if the core belongs to the group.
func (g Group) Contains(core int) bool {
	for _, c := range g.Cores {
		if c == core {
			return true
		}
	}

	return false
}

// PlanGroups partitions coreCount cores row by row into groups of groupSize
// contiguous cores. A row that is not a multiple of groupSize ends with a
// shorter group; groups never cross a row boundary, which keeps the fan-out
// distance bounded by the row. This truncation is an approximation of the
// multicast design and is kept as is.
func PlanGroups(
	coreCount, groupSize int,
	kind TopologyKind,
	coresPerRow int,
) ([]Group, error) {
	if !kind.IsMeshLike() {
		return nil, topoerr.NewConfigError("topology/multicast",
			"multicast requires a mesh topology, got %s", kind)
	}

	if groupSize <= 0 {
		return nil, topoerr.NewConfigError("llc_multicast_group_size",
			"must be positive, got %d", groupSize)
	}

	if coresPerRow <= 0 || coreCount%coresPerRow != 0 {
		return nil, topoerr.NewConfigError("num_cores_per_row",
			"%d cores cannot be split into rows of %d",
			coreCount, coresPerRow)
	}

	groups := make([]Group, 0, coreCount/groupSize+1)
	for rowStart := 0; rowStart < coreCount; rowStart += coresPerRow {
		rowEnd := rowStart + coresPerRow

		for start := rowStart; start < rowEnd; start += groupSize {
			end := start + groupSize
			if end > rowEnd {
				end = rowEnd
			}

			groups = append(groups, newGroup(len(groups), start, end, groupSize))
		}
	}

	return groups, nil
}

// PlanSingletons returns one single-core group per core, which is the
// grouping used when multicast is disabled.
func PlanSingletons(coreCount int) []Group {
	groups := make([]Group, coreCount)
	for i := range groups {
		groups[i] = newGroup(i, i, i+1, 1)
	}

	return groups
}

func newGroup(index, start, end, groupSize int) Group {
	cores := make([]int, 0, end-start)
	for c := start; c < end; c++ {
		cores = append(cores, c)
	}

	return Group{
		Index:     index,
		Cores:     cores,
		GroupSize: groupSize,
	}
}

// WithIssuePolicy returns copies of the groups with the policy set.
func WithIssuePolicy(groups []Group, policy IssuePolicy) []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		g.Cores = append([]int(nil), g.Cores...)
		g.IssuePolicy = policy
		out[i] = g
	}

	return out
}

// GroupOf returns the index of the group that contains the core, or -1.
func GroupOf(groups []Group, core int) int {
	for _, g := range groups {
		if g.Contains(core) {
			return g.Index
		}
	}

	return -1
}
