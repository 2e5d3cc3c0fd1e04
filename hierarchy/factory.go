package hierarchy

import (
	"github.com/sarchlab/mesitopo/addressing"
	"github.com/sarchlab/mesitopo/naming"
	"github.com/sarchlab/mesitopo/streamfloat"
	"github.com/sarchlab/mesitopo/topoerr"
)

// Default controller settings.
const (
	DefaultL0TransitionsPerCycle = 32
	DefaultL1TransitionsPerCycle = 32
	DefaultL2TransitionsPerCycle = 4
	DefaultL2TBEs                = 128
	DefaultDirectoryTBEs         = 8192
	DefaultL1UnblockLatency      = 1
)

// LevelParams are the user-facing settings of one cache level.
type LevelParams struct {
	Size        uint64
	Assoc       int
	ICacheSize  uint64
	ICacheAssoc int
	TBEs        int
	Latency     Latency
	Replacement string
	Prefetcher  Prefetcher
}

// Factory creates nodes that share one address map, one set of stream flags,
// and one virtual-network total.
type Factory struct {
	parent          string
	addrMap         *addressing.AddressMap
	flags           *streamfloat.Flags
	virtualNetworks int
	registry        *Registry
}

// NewFactory creates a factory. Node names are built under parent.
func NewFactory(
	parent string,
	addrMap *addressing.AddressMap,
	flags *streamfloat.Flags,
	virtualNetworks int,
) *Factory {
	return &Factory{
		parent:          parent,
		addrMap:         addrMap,
		flags:           flags,
		virtualNetworks: virtualNetworks,
		registry:        NewRegistry(),
	}
}

// Registry returns the registry that collects the created nodes.
func (f *Factory) Registry() *Registry {
	return f.registry
}

func (f *Factory) lineSize() uint64 {
	return 1 << uint(f.addrMap.BlockOffsetBits)
}

func (f *Factory) newNode(role Role, clusterID int) *Node {
	id := f.registry.Count(role)
	name := naming.BuildWithIndex(f.parent, role.String(), id)
	naming.MustBeValid(name)

	return &Node{
		ID:              id,
		Role:            role,
		Version:         id,
		ClusterID:       clusterID,
		Name:            name,
		Flags:           f.flags,
		AddressMap:      f.addrMap,
		VirtualNetworks: f.virtualNetworks,
	}
}

func (f *Factory) register(n *Node) (*Node, error) {
	if err := f.registry.Add(n); err != nil {
		return nil, err
	}

	return n, nil
}

// BuildPrivateNodes creates the L0 and L1 caches of one core.
func (f *Factory) BuildPrivateNodes(
	coreIndex, clusterID int,
	l0, l1 LevelParams,
) (*Node, *Node, error) {
	l0Node, err := f.BuildPrivateNode(L0, coreIndex, clusterID, l0)
	if err != nil {
		return nil, nil, err
	}

	l1Node, err := f.BuildPrivateNode(L1, coreIndex, clusterID, l1)
	if err != nil {
		return nil, nil, err
	}

	return l0Node, l1Node, nil
}

// BuildPrivateNode creates one private cache of a core. Cores must be built
// in index order.
func (f *Factory) BuildPrivateNode(
	role Role,
	coreIndex, clusterID int,
	p LevelParams,
) (*Node, error) {
	if !role.IsPrivate() {
		return nil, topoerr.NewInvariantViolation("private roles",
			"%s is not a private cache", role)
	}

	n := f.newNode(role, clusterID)
	if n.ID != coreIndex {
		return nil, topoerr.NewInvariantViolation("contiguous node ids",
			"%s for core %d would get id %d", role, coreIndex, n.ID)
	}

	n.Geometry = Geometry{
		Size:          p.Size,
		Assoc:         p.Assoc,
		LineSize:      f.lineSize(),
		StartIndexBit: f.addrMap.BlockOffsetBits,
		Replacement:   p.Replacement,
	}
	if err := n.Geometry.validate(n.Name); err != nil {
		return nil, err
	}

	if err := p.Prefetcher.validate(n.Name + ".Prefetcher"); err != nil {
		return nil, err
	}

	n.Latency = p.Latency
	n.TBEs = p.TBEs
	n.Prefetcher = p.Prefetcher

	switch role {
	case L0:
		n.TransitionsPerCycle = DefaultL0TransitionsPerCycle
		if n.Geometry.Replacement == "" {
			n.Geometry.Replacement = "BRRIP"
		}

		if err := f.addICache(n, p); err != nil {
			return nil, err
		}
	case L1:
		n.TransitionsPerCycle = DefaultL1TransitionsPerCycle
		if n.Latency.Unblock == 0 {
			n.Latency.Unblock = DefaultL1UnblockLatency
		}

		if n.Geometry.Replacement == "" {
			n.Geometry.Replacement = "LRU"
		}
	}

	return f.register(n)
}

func (f *Factory) addICache(n *Node, p LevelParams) error {
	if p.ICacheSize == 0 {
		return nil
	}

	n.ICache = Geometry{
		Size:          p.ICacheSize,
		Assoc:         p.ICacheAssoc,
		LineSize:      f.lineSize(),
		StartIndexBit: f.addrMap.BlockOffsetBits,
		IsICache:      true,
		Replacement:   n.Geometry.Replacement,
	}

	return n.ICache.validate(n.Name + ".ICache")
}

// BuildSharedBankNode creates the L2 bank localBank of a cluster. The bank
// skips the bank-select window when indexing its sets.
func (f *Factory) BuildSharedBankNode(
	localBank, clusterID int,
	p LevelParams,
) (*Node, error) {
	if localBank < 0 || localBank >= f.addrMap.BanksPerCluster {
		return nil, topoerr.NewConfigError("l2 bank",
			"local bank %d outside [0, %d)",
			localBank, f.addrMap.BanksPerCluster)
	}

	n := f.newNode(L2, clusterID)

	globalID := clusterID*f.addrMap.BanksPerCluster + localBank
	if n.ID != globalID {
		return nil, topoerr.NewInvariantViolation("contiguous node ids",
			"bank %d of cluster %d would get id %d", localBank, clusterID,
			n.ID)
	}

	n.Geometry = Geometry{
		Size:            p.Size,
		Assoc:           p.Assoc,
		LineSize:        f.lineSize(),
		StartIndexBit:   f.addrMap.BlockOffsetBits,
		SkipIndexLowBit: f.addrMap.BankSelectLowBit,
		SkipIndexBits:   f.addrMap.BankSelectBits,
		Replacement:     p.Replacement,
	}
	if n.Geometry.Replacement == "" {
		n.Geometry.Replacement = "BRRIP"
	}

	if err := n.Geometry.validate(n.Name); err != nil {
		return nil, err
	}

	n.Latency = p.Latency
	n.TBEs = p.TBEs
	if n.TBEs == 0 {
		n.TBEs = DefaultL2TBEs
	}

	n.TransitionsPerCycle = DefaultL2TransitionsPerCycle
	n.Engine = f.engine(f.flags.LLC)
	n.Engine.SIMDDelay = f.flags.LLCAccessCoreSIMDDelay
	n.Engine.MulticastGroupSize = f.flags.MulticastGroupSize

	return f.register(n)
}

// BuildDirectoryNode creates a directory. The directory backs every
// in-flight request of the system, so its TBE budget can only be raised above
// DefaultDirectoryTBEs.
func (f *Factory) BuildDirectoryNode(dirIndex int, p LevelParams) (*Node, error) {
	n := f.newNode(Directory, 0)
	if n.ID != dirIndex {
		return nil, topoerr.NewInvariantViolation("contiguous node ids",
			"directory %d would get id %d", dirIndex, n.ID)
	}

	if dirIndex >= f.addrMap.NumDirectories {
		return nil, topoerr.NewConfigError("num_dirs",
			"directory %d exceeds the %d directories of the address map",
			dirIndex, f.addrMap.NumDirectories)
	}

	if p.TBEs != 0 && p.TBEs < DefaultDirectoryTBEs {
		return nil, topoerr.NewConfigError("directory.tbes",
			"must be at least %d, got %d", DefaultDirectoryTBEs, p.TBEs)
	}

	n.Latency = p.Latency
	n.TBEs = p.TBEs
	if n.TBEs == 0 {
		n.TBEs = DefaultDirectoryTBEs
	}

	n.Engine = f.engine(f.flags.MC)
	n.Engine.ReuseBufferLinesPerCore = f.flags.MCReuseBufferLinesPerCore

	return f.register(n)
}

func (f *Factory) engine(l streamfloat.LevelEngine) *StreamEngine {
	return &StreamEngine{
		Enabled:                    f.flags.Float,
		IssueWidth:                 l.IssueWidth,
		MigrateWidth:               l.MigrateWidth,
		MaxInflyRequest:            l.MaxInflyRequest,
		ComputeWidth:               f.flags.ComputeWidth,
		MaxInflyComputation:        f.flags.LLCMaxInflyComputation,
		NeighborStreamThreshold:    l.NeighborStreamThreshold,
		NeighborMigrationDelay:     l.NeighborMigrationDelay,
		NeighborMigrationValveType: l.NeighborMigrationValveType,
	}
}

// BuildDMANode creates the controller of one DMA port.
func (f *Factory) BuildDMANode(dmaIndex int, p LevelParams) (*Node, error) {
	n := f.newNode(DMA, 0)
	if n.ID != dmaIndex {
		return nil, topoerr.NewInvariantViolation("contiguous node ids",
			"dma %d would get id %d", dmaIndex, n.ID)
	}

	n.Latency = p.Latency

	return f.register(n)
}

// BuildIONode creates the IO controller of a full-system build. It is
// numbered after the DMA controllers, so all DMA nodes must exist first.
func (f *Factory) BuildIONode(p LevelParams) (*Node, error) {
	if f.registry.Count(IO) > 0 {
		return nil, topoerr.NewConfigError("io controller",
			"a system has at most one IO controller")
	}

	n := f.newNode(IO, 0)
	n.Version = f.registry.Count(DMA)
	n.Latency = p.Latency

	return f.register(n)
}
