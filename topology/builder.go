package topology

import (
	"fmt"

	"github.com/rs/xid"

	"github.com/sarchlab/mesitopo/addressing"
	"github.com/sarchlab/mesitopo/hierarchy"
	"github.com/sarchlab/mesitopo/hooking"
	"github.com/sarchlab/mesitopo/multicast"
	"github.com/sarchlab/mesitopo/naming"
	"github.com/sarchlab/mesitopo/streamfloat"
	"github.com/sarchlab/mesitopo/topoerr"
	"github.com/sarchlab/mesitopo/wiring"
)

// Builder assembles topologies.
type Builder struct {
	name           string
	config         Config
	networkBuilder NetworkBuilder
	hooks          []hooking.Hook
}

// MakeBuilder creates a builder with the default config.
func MakeBuilder() Builder {
	return Builder{
		name:   "System",
		config: DefaultConfig(),
	}
}

// WithName sets the name that every node is named under.
func (b Builder) WithName(name string) Builder {
	b.name = name
	return b
}

// WithConfig sets the config to assemble.
func (b Builder) WithConfig(config Config) Builder {
	b.config = config
	return b
}

// WithNetworkBuilder sets the collaborator that receives the nodes after
// assembly.
func (b Builder) WithNetworkBuilder(nb NetworkBuilder) Builder {
	b.networkBuilder = nb
	return b
}

// WithHook adds a hook that follows the assembly.
func (b Builder) WithHook(hook hooking.Hook) Builder {
	b.hooks = append(append([]hooking.Hook(nil), b.hooks...), hook)
	return b
}

// Build assembles the topology. On failure it returns the first error and no
// topology.
func (b Builder) Build() (*Topology, error) {
	a := &assembler{name: b.name}
	for _, h := range b.hooks {
		a.AcceptHook(h)
	}

	v, err := validate(b.name, b.config)
	if err != nil {
		return nil, err
	}

	plan, err := planAddresses(v)
	if err != nil {
		return nil, err
	}

	nodes, err := a.buildNodes(plan)
	if err != nil {
		return nil, err
	}

	wired, err := a.wire(nodes)
	if err != nil {
		return nil, err
	}

	t, err := a.finish(wired)
	if err != nil {
		return nil, err
	}

	if b.networkBuilder != nil {
		err = b.networkBuilder.BuildNetwork(t.AllNodes(), t.kind, t.meshRows)
		if err != nil {
			return nil, fmt.Errorf("building the %s network: %w", t.kind, err)
		}
	}

	a.deliver()
	a.InvokeHook(hooking.HookCtx{
		Domain: a,
		Pos:    hooking.HookPosTopologyAssembled,
		Item:   t,
		Detail: t.BuildID(),
	})

	return t, nil
}

// assembler runs the stages and invokes the hooks. Events of the stages are
// held back until the whole assembly succeeds, so that observers never see a
// topology that is later rejected.
type assembler struct {
	hooking.HookableBase
	name    string
	pending []hooking.HookCtx
}

func (a *assembler) notify(ctx hooking.HookCtx) {
	a.pending = append(a.pending, ctx)
}

func (a *assembler) deliver() {
	for _, ctx := range a.pending {
		a.InvokeHook(ctx)
	}

	a.pending = nil
}

type validatedConfig struct {
	config     Config
	kind       multicast.TopologyKind
	flags      *streamfloat.Flags
	l0, l1, l2 hierarchy.LevelParams
	dir, dma   hierarchy.LevelParams
}

type addressPlan struct {
	validatedConfig
	addrMap *addressing.AddressMap
	budget  wiring.NetworkBudget
}

type nodeSet struct {
	addressPlan
	registry      *hierarchy.Registry
	sequencers    []Sequencer
	dmaSequencers []Sequencer
}

type wiredSet struct {
	nodeSet
	engine *wiring.Engine
}

func validate(name string, c Config) (validatedConfig, error) {
	v := validatedConfig{config: c}

	if err := naming.Validate(name); err != nil {
		return v, topoerr.NewConfigError("name", "%v", err)
	}

	kind, err := multicast.ParseTopologyKind(c.Topology)
	if err != nil {
		return v, err
	}

	v.kind = kind

	flags, err := streamfloat.ParseFlagList(c.Stream, c.StreamFeatures)
	if err != nil {
		return v, err
	}

	if err := streamfloat.Validate(flags, kind); err != nil {
		return v, err
	}

	v.flags = &flags

	if err := validateCounts(c); err != nil {
		return v, err
	}

	levels := []struct {
		subject string
		config  LevelConfig
		params  *hierarchy.LevelParams
	}{
		{"l0", c.L0, &v.l0},
		{"l1", c.L1, &v.l1},
		{"l2", c.L2, &v.l2},
		{"directory", c.Directory, &v.dir},
		{"dma", c.DMA, &v.dma},
	}
	for _, l := range levels {
		if *l.params, err = l.config.params(l.subject); err != nil {
			return v, err
		}
	}

	return v, nil
}

func validateCounts(c Config) error {
	if c.NumCPUs <= 0 {
		return topoerr.NewConfigError("num_cpus",
			"must be positive, got %d", c.NumCPUs)
	}

	if c.NumClusters <= 0 || c.NumCPUs%c.NumClusters != 0 {
		return topoerr.NewConfigError("num_clusters",
			"%d cpus cannot be split evenly over %d clusters",
			c.NumCPUs, c.NumClusters)
	}

	if c.NumDMAs < 0 {
		return topoerr.NewConfigError("num_dmas",
			"must not be negative, got %d", c.NumDMAs)
	}

	return nil
}

func planAddresses(v validatedConfig) (addressPlan, error) {
	c := v.config

	addrMap, err := addressing.Derive(addressing.Params{
		LineSize:         c.CachelineSize,
		NumCores:         c.NumCPUs,
		NumClusters:      c.NumClusters,
		NumL2Banks:       c.NumL2Caches,
		BankSelectLowBit: c.LLCSelectLowBit,
		NumDirectories:   c.NumDirs,
		NUMAHighBit:      c.NUMAHighBit,
		MeshRows:         c.MeshRows,
		RowGrouping:      v.flags.Multicast,
	})
	if err != nil {
		return addressPlan{}, err
	}

	return addressPlan{
		validatedConfig: v,
		addrMap:         addrMap,
		budget:          wiring.NewNetworkBudget(v.flags.StreamLanesEnabled()),
	}, nil
}

func (a *assembler) nodeBuilt(n *hierarchy.Node) {
	a.notify(hooking.HookCtx{
		Domain: a,
		Pos:    hooking.HookPosNodeBuilt,
		Item:   n.Name,
		Detail: n.Role,
	})
}

func (a *assembler) buildNodes(p addressPlan) (nodeSet, error) {
	c := p.config
	f := hierarchy.NewFactory(a.name, p.addrMap, p.flags, p.budget.Total())
	s := nodeSet{addressPlan: p, registry: f.Registry()}

	cpusPerCluster := c.CPUsPerCluster()
	for cluster := 0; cluster < c.NumClusters; cluster++ {
		for j := 0; j < cpusPerCluster; j++ {
			core := cluster*cpusPerCluster + j

			l0, l1, err := f.BuildPrivateNodes(core, cluster, p.l0, p.l1)
			if err != nil {
				return s, err
			}

			a.nodeBuilt(l0)
			a.nodeBuilt(l1)

			s.sequencers = append(s.sequencers, Sequencer{
				Version: core,
				Name:    fmt.Sprintf("%s.Sequencer[%d]", a.name, core),
				Node:    hierarchy.L0,
				NodeID:  l0.ID,
				IsIdeal: c.IdealSequencer,
			})
		}
	}

	for cluster := 0; cluster < c.NumClusters; cluster++ {
		for bank := 0; bank < p.addrMap.BanksPerCluster; bank++ {
			n, err := f.BuildSharedBankNode(bank, cluster, p.l2)
			if err != nil {
				return s, err
			}

			a.nodeBuilt(n)
		}
	}

	for i := 0; i < c.NumDirs; i++ {
		n, err := f.BuildDirectoryNode(i, p.dir)
		if err != nil {
			return s, err
		}

		a.nodeBuilt(n)
	}

	if err := a.buildDMANodes(f, &s); err != nil {
		return s, err
	}

	return s, nil
}

func (a *assembler) buildDMANodes(f *hierarchy.Factory, s *nodeSet) error {
	for i := 0; i < s.config.NumDMAs; i++ {
		n, err := f.BuildDMANode(i, s.dma)
		if err != nil {
			return err
		}

		a.nodeBuilt(n)

		s.dmaSequencers = append(s.dmaSequencers, Sequencer{
			Version: i,
			Name:    fmt.Sprintf("%s.DMASequencer[%d]", a.name, i),
			Node:    hierarchy.DMA,
			NodeID:  n.ID,
		})
	}

	if !s.config.FullSystem {
		return nil
	}

	io, err := f.BuildIONode(s.dma)
	if err != nil {
		return err
	}

	a.nodeBuilt(io)

	return nil
}

func (a *assembler) finish(w wiredSet) (*Topology, error) {
	groups, err := planMulticast(w)
	if err != nil {
		return nil, err
	}

	a.notify(hooking.HookCtx{
		Domain: a,
		Pos:    hooking.HookPosGroupsPlanned,
		Item:   len(groups),
		Detail: w.flags.MulticastIssuePolicy,
	})

	if err := checkInvariants(w); err != nil {
		return nil, err
	}

	t := &Topology{
		buildID:       xid.New(),
		name:          a.name,
		kind:          w.kind,
		fullSystem:    w.config.FullSystem,
		addrMap:       w.addrMap,
		budget:        w.budget,
		flags:         w.flags,
		nodes:         make(map[hierarchy.Role][]*hierarchy.Node),
		all:           w.registry.All(),
		groups:        groups,
		sequencers:    w.sequencers,
		dmaSequencers: w.dmaSequencers,
	}

	if w.kind.IsMeshLike() {
		t.meshRows = w.config.MeshRows
	}

	for _, role := range hierarchy.Roles {
		t.nodes[role] = w.registry.Nodes(role)
	}

	for _, c := range w.engine.Channels() {
		t.channels = append(t.channels, channelView(c))
	}

	return t, nil
}

func planMulticast(w wiredSet) ([]multicast.Group, error) {
	if !w.flags.Multicast {
		return multicast.PlanSingletons(w.config.NumCPUs), nil
	}

	groups, err := multicast.PlanGroups(w.config.NumCPUs,
		w.flags.MulticastGroupSize, w.kind, w.addrMap.CoresPerRow)
	if err != nil {
		return nil, err
	}

	policy, err := multicast.ParseIssuePolicy(
		string(w.flags.MulticastIssuePolicy))
	if err != nil {
		return nil, err
	}

	return multicast.WithIssuePolicy(groups, policy), nil
}

func checkInvariants(w wiredSet) error {
	if err := w.registry.Verify(); err != nil {
		return err
	}

	nodes := w.registry.All()
	for _, n := range nodes {
		if n.AddressMap != w.addrMap {
			return topoerr.NewInvariantViolation("shared address map",
				"%s holds its own address map", n.Name)
		}

		if n.Flags != w.flags {
			return topoerr.NewInvariantViolation("shared stream flags",
				"%s holds its own stream flags", n.Name)
		}
	}

	return w.engine.VerifyComplete(nodes)
}

func endView(e wiring.Endpoint) End {
	end := End{Side: e.Side}
	if e.Side == wiring.SideNode {
		end.Role = e.Node.Role
		end.NodeID = e.Node.ID
		end.NodeName = e.Node.Name
	}

	return end
}

func channelView(c *wiring.Channel) Channel {
	return Channel{
		ID:             c.ID,
		Name:           c.Name,
		Kind:           c.Kind,
		VirtualNetwork: c.VirtualNetwork,
		Ordered:        c.Ordered,
		From:           endView(c.From),
		To:             endView(c.To),
	}
}
