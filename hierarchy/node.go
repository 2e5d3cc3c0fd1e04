// Package hierarchy creates the controller records of a cache hierarchy.
package hierarchy

import (
	"math/bits"

	"github.com/sarchlab/mesitopo/addressing"
	"github.com/sarchlab/mesitopo/streamfloat"
	"github.com/sarchlab/mesitopo/topoerr"
)

// Geometry describes the storage of one cache.
type Geometry struct {
	Size     uint64
	Assoc    int
	LineSize uint64

	// StartIndexBit is the lowest bit of the set index. Bits
	// [SkipIndexLowBit, SkipIndexLowBit+SkipIndexBits) are removed from the
	// address before the set index is taken.
	StartIndexBit   int
	SkipIndexLowBit int
	SkipIndexBits   int

	IsICache    bool
	Replacement string
}

// NumSets returns the number of sets.
func (g Geometry) NumSets() uint64 {
	return g.Size / (uint64(g.Assoc) * g.LineSize)
}

// SetIndexBits returns the width of the set index.
func (g Geometry) SetIndexBits() int {
	return bits.TrailingZeros64(g.NumSets())
}

// SetIndex returns the set that holds the address.
func (g Geometry) SetIndex(address uint64) uint64 {
	return addressing.MapSetIndexWithSkip(address, g.StartIndexBit,
		g.SetIndexBits(), g.SkipIndexLowBit, g.SkipIndexBits)
}

func (g Geometry) validate(subject string) error {
	if g.Size == 0 || g.Assoc <= 0 || g.LineSize == 0 {
		return topoerr.NewConfigError(subject,
			"size %d, assoc %d and line size %d must all be positive",
			g.Size, g.Assoc, g.LineSize)
	}

	setSize := uint64(g.Assoc) * g.LineSize
	if g.Size%setSize != 0 {
		return topoerr.NewConfigError(subject,
			"size %s does not hold a whole number of %d-way sets",
			FormatSize(g.Size), g.Assoc)
	}

	numSets := g.Size / setSize
	if numSets&(numSets-1) != 0 {
		return topoerr.NewConfigError(subject,
			"number of sets %d is not a power of two", numSets)
	}

	return nil
}

// Latency holds the controller latencies, in cycles.
type Latency struct {
	Request      int `yaml:"request"`
	Response     int `yaml:"response"`
	ToLowerLevel int `yaml:"to_lower_level"`
	Unblock      int `yaml:"unblock"`
	Migrate      int `yaml:"migrate"`
	Compute      int `yaml:"compute"`
}

// Prefetcher selects the hardware prefetcher attached to a private cache.
type Prefetcher struct {
	Kind     string `yaml:"kind"`
	OnAccess bool   `yaml:"on_access"`
	Distance int    `yaml:"distance"`
}

var prefetcherKinds = []string{"", "stride", "bingo", "imp"}

// Enabled tells if a prefetcher is attached.
func (p Prefetcher) Enabled() bool {
	return p.Kind != ""
}

func (p Prefetcher) validate(subject string) error {
	known := false
	for _, k := range prefetcherKinds {
		if p.Kind == k {
			known = true
		}
	}

	if !known {
		return topoerr.NewConfigError(subject,
			"unknown prefetcher %q", p.Kind)
	}

	if p.Kind == "imp" && !p.OnAccess {
		return topoerr.NewConfigError(subject,
			"the imp prefetcher requires prefetch on access")
	}

	return nil
}

// StreamEngine holds the floating stream-engine settings of an L2 bank or a
// directory.
type StreamEngine struct {
	Enabled                    bool
	IssueWidth                 int
	MigrateWidth               int
	MaxInflyRequest            int
	ComputeWidth               int
	MaxInflyComputation        int
	SIMDDelay                  int
	NeighborStreamThreshold    int
	NeighborMigrationDelay     int
	NeighborMigrationValveType string
	ReuseBufferLinesPerCore    int
	MulticastGroupSize         int
}

// Node is one controller of the hierarchy.
type Node struct {
	// ID is dense inside a role and follows creation order.
	ID   int
	Role Role

	// Version is the number the coherence protocol uses for the node. It
	// differs from ID only for the IO controller, which is numbered after
	// the DMA controllers.
	Version   int
	ClusterID int
	Name      string

	Geometry Geometry
	ICache   Geometry

	Latency             Latency
	TBEs                int
	TransitionsPerCycle int
	Prefetcher          Prefetcher
	Engine              *StreamEngine

	Flags           *streamfloat.Flags
	AddressMap      *addressing.AddressMap
	VirtualNetworks int
}

// HasICache tells if the node carries a separate instruction cache.
func (n *Node) HasICache() bool {
	return n.ICache.Size > 0
}
