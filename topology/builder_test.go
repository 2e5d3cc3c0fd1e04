package topology

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/mesitopo/hierarchy"
	"github.com/sarchlab/mesitopo/hooking"
	"github.com/sarchlab/mesitopo/multicast"
	"github.com/sarchlab/mesitopo/topoerr"
	"github.com/sarchlab/mesitopo/wiring"
)

type recordingHook struct {
	counts map[*hooking.HookPos]int
}

func newRecordingHook() *recordingHook {
	return &recordingHook{counts: make(map[*hooking.HookPos]int)}
}

func (h *recordingHook) Func(ctx hooking.HookCtx) {
	h.counts[ctx.Pos]++
}

type orderHook struct {
	positions []*hooking.HookPos
}

func (h *orderHook) Func(ctx hooking.HookCtx) {
	h.positions = append(h.positions, ctx.Pos)
}

func eightCoreConfig() Config {
	c := DefaultConfig()
	c.NumCPUs = 8
	c.NumL2Caches = 4
	c.LLCSelectLowBit = 12

	return c
}

func multicastConfig(groupSize int) Config {
	c := DefaultConfig()
	c.NumCPUs = 16
	c.NumL2Caches = 16
	c.NumDirs = 4
	c.LLCSelectLowBit = 12
	c.Topology = "Mesh_XY"
	c.MeshRows = 2
	c.Stream.Float = true
	c.Stream.Multicast = true
	c.Stream.MulticastGroupSize = groupSize

	return c
}

var _ = Describe("Builder", func() {
	var hook *recordingHook

	BeforeEach(func() {
		hook = newRecordingHook()
	})

	It("should build eight cores over four banks", func() {
		t, err := MakeBuilder().
			WithConfig(eightCoreConfig()).
			WithHook(hook).
			Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(t.NumNodes(hierarchy.L0)).To(Equal(8))
		Expect(t.NumNodes(hierarchy.L1)).To(Equal(8))
		Expect(t.NumNodes(hierarchy.L2)).To(Equal(4))
		Expect(t.NumNodes(hierarchy.Directory)).To(Equal(1))
		Expect(t.AddressMap().BankSelectBits).To(Equal(2))

		dir, ok := t.Node(hierarchy.Directory, 0)
		Expect(ok).To(BeTrue())
		Expect(dir.TBEs).To(Equal(8192))

		Expect(t.Channels()).To(HaveLen(110))
		Expect(t.Sequencers()).To(HaveLen(8))
		Expect(t.Budget().Total()).To(Equal(3))
		Expect(t.BuildID()).NotTo(BeEmpty())
		Expect(t.String()).To(Equal(
			"System (Crossbar, 21 nodes, 110 channels, 3 virtual networks)"))

		Expect(hook.counts[hooking.HookPosNodeBuilt]).To(Equal(21))
		Expect(hook.counts[hooking.HookPosChannelConnected]).To(Equal(110))
		Expect(hook.counts[hooking.HookPosGroupsPlanned]).To(Equal(1))
		Expect(hook.counts[hooking.HookPosTopologyAssembled]).To(Equal(1))
	})

	It("should deliver the assembly events once the topology is done", func() {
		order := &orderHook{}

		_, err := MakeBuilder().
			WithConfig(eightCoreConfig()).
			WithHook(order).
			Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(order.positions).To(HaveLen(21 + 110 + 2))
		Expect(order.positions[0]).To(BeIdenticalTo(hooking.HookPosNodeBuilt))
		Expect(order.positions[len(order.positions)-2]).
			To(BeIdenticalTo(hooking.HookPosGroupsPlanned))
		Expect(order.positions[len(order.positions)-1]).
			To(BeIdenticalTo(hooking.HookPosTopologyAssembled))
	})

	It("should give every node the same budget", func() {
		t, err := MakeBuilder().WithConfig(multicastConfig(4)).Build()

		Expect(err).NotTo(HaveOccurred())
		for _, n := range t.AllNodes() {
			Expect(n.VirtualNetworks).To(Equal(5))
		}
	})

	It("should attach both ends of every channel", func() {
		t, err := MakeBuilder().WithConfig(multicastConfig(4)).Build()

		Expect(err).NotTo(HaveOccurred())
		for _, c := range t.Channels() {
			Expect(c.From.Side).NotTo(Equal(wiring.SideUnset))
			Expect(c.To.Side).NotTo(Equal(wiring.SideUnset))
			Expect(c.From.Side == wiring.SideNode ||
				c.To.Side == wiring.SideNode).To(BeTrue())
		}
	})

	It("should wire the stream lanes when floating", func() {
		t, err := MakeBuilder().WithConfig(multicastConfig(4)).Build()

		Expect(err).NotTo(HaveOccurred())

		var lanes []Channel
		for _, c := range t.ChannelsOf(hierarchy.L2, 0) {
			if c.Kind.IsStreamLane() {
				lanes = append(lanes, c)
			}
		}

		Expect(lanes).To(HaveLen(4))
		Expect(lanes[0].VirtualNetwork).To(Equal(3))
		Expect(lanes[2].VirtualNetwork).To(Equal(4))
	})

	It("should reject indirect float before building any node", func() {
		c := eightCoreConfig()
		c.Stream.Indirect = true

		t, err := MakeBuilder().WithConfig(c).WithHook(hook).Build()

		Expect(t).To(BeNil())
		Expect(topoerr.IsConfigError(err)).To(BeTrue())
		Expect(hook.counts[hooking.HookPosNodeBuilt]).To(BeZero())
	})

	It("should reject multicast on a point-to-point network", func() {
		c := multicastConfig(4)
		c.Topology = "Pt2Pt"

		t, err := MakeBuilder().WithConfig(c).Build()

		Expect(t).To(BeNil())

		var ce *topoerr.ConfigError
		Expect(errors.As(err, &ce)).To(BeTrue())
		Expect(ce.Subject).To(Equal("topology/multicast"))
	})

	It("should truncate the last group of each row", func() {
		t, err := MakeBuilder().WithConfig(multicastConfig(3)).Build()

		Expect(err).NotTo(HaveOccurred())

		var sizes []int
		for _, g := range t.Groups() {
			sizes = append(sizes, len(g.Cores))
		}

		Expect(sizes).To(Equal([]int{3, 3, 2, 3, 3, 2}))
		Expect(t.Groups()[0].IssuePolicy).To(Equal(multicast.IssueFirst))
	})

	It("should plan one group per core without multicast", func() {
		t, err := MakeBuilder().WithConfig(eightCoreConfig()).Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(t.Groups()).To(HaveLen(8))
	})

	It("should reject a name that nodes cannot be named under", func() {
		var err error

		Expect(func() {
			_, err = MakeBuilder().
				WithName("my_system").
				WithConfig(eightCoreConfig()).
				WithHook(hook).
				Build()
		}).NotTo(Panic())

		var configErr *topoerr.ConfigError
		Expect(errors.As(err, &configErr)).To(BeTrue())
		Expect(configErr.Subject).To(Equal("name"))
		Expect(hook.counts[hooking.HookPosNodeBuilt]).To(BeZero())
	})

	It("should name nodes under a custom name", func() {
		t, err := MakeBuilder().
			WithName("Chip").
			WithConfig(eightCoreConfig()).
			Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(t.AllNodes()[0].Name).To(Equal("Chip.L0Cache[0]"))
	})

	It("should reject an unknown topology", func() {
		c := eightCoreConfig()
		c.Topology = "Torus"

		_, err := MakeBuilder().WithConfig(c).Build()

		Expect(topoerr.IsConfigError(err)).To(BeTrue())
	})

	It("should reject a bank window inside the cache line", func() {
		c := eightCoreConfig()
		c.LLCSelectLowBit = 4

		_, err := MakeBuilder().WithConfig(c).Build()

		var ce *topoerr.ConfigError
		Expect(errors.As(err, &ce)).To(BeTrue())
		Expect(ce.Subject).To(Equal("llc_select_low_bit"))
	})

	It("should reject cores that do not fill the clusters", func() {
		c := eightCoreConfig()
		c.NumClusters = 3

		_, err := MakeBuilder().WithConfig(c).Build()

		Expect(topoerr.IsConfigError(err)).To(BeTrue())
	})

	It("should reject an unparsable cache size", func() {
		c := eightCoreConfig()
		c.L1.Size = "big"

		_, err := MakeBuilder().WithConfig(c).Build()

		Expect(topoerr.IsConfigError(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("l1 size"))
	})

	It("should add DMA and IO controllers in full-system mode", func() {
		c := eightCoreConfig()
		c.NumDMAs = 2
		c.FullSystem = true

		t, err := MakeBuilder().WithConfig(c).Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(t.DMASequencers()).To(HaveLen(2))

		io, ok := t.Node(hierarchy.IO, 0)
		Expect(ok).To(BeTrue())
		Expect(io.Version).To(Equal(2))
		Expect(io.Name).To(Equal("System.IO[0]"))
	})

	It("should find owners by cluster", func() {
		c := DefaultConfig()
		c.NumCPUs = 4
		c.NumClusters = 2
		c.NumL2Caches = 4
		c.NumDirs = 2
		c.LLCSelectLowBit = 12

		t, err := MakeBuilder().WithConfig(c).Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(t.BankOwner(1<<12, 1)).To(Equal("System.L2Cache[3]"))
		Expect(t.BankOwner(0, 0)).To(Equal("System.L2Cache[0]"))
		Expect(t.DirectoryOwner(1 << 6)).To(Equal("System.Directory[1]"))

		l1, _ := t.Node(hierarchy.L1, 3)
		Expect(l1.ClusterID).To(Equal(1))
	})

	It("should hand copies to callers", func() {
		t, err := MakeBuilder().WithConfig(eightCoreConfig()).Build()
		Expect(err).NotTo(HaveOccurred())

		nodes := t.Nodes(hierarchy.L2)
		nodes[0].TBEs = 1
		nodes[0].Engine.IssueWidth = 99
		groups := t.Groups()
		groups[0].Cores[0] = 42

		bank, _ := t.Node(hierarchy.L2, 0)
		Expect(bank.TBEs).To(Equal(128))
		Expect(bank.Engine.IssueWidth).To(Equal(1))
		Expect(t.Groups()[0].Cores[0]).To(Equal(0))
	})

	It("should keep flags and the address map out of reach", func() {
		t, err := MakeBuilder().WithConfig(eightCoreConfig()).Build()
		Expect(err).NotTo(HaveOccurred())
		owner := t.BankOwner(1<<12, 0)

		bank := t.Nodes(hierarchy.L2)[0]
		bank.Flags.Float = true
		bank.AddressMap.BankSelectLowBit = 40

		Expect(t.Flags().Float).To(BeFalse())
		Expect(t.AddressMap().BankSelectLowBit).To(Equal(12))
		Expect(t.BankOwner(1<<12, 0)).To(Equal(owner))
		Expect(owner).To(Equal("System.L2Cache[1]"))

		again, _ := t.Node(hierarchy.L2, 0)
		Expect(again.Flags.Float).To(BeFalse())
		Expect(again.AddressMap.BankSelectLowBit).To(Equal(12))
	})

	It("should derive the core engine", func() {
		c := eightCoreConfig()
		c.Stream.LLCAccessCoreSIMDDelay = 4

		t, err := MakeBuilder().WithConfig(c).Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(t.CoreEngine().ComputeSIMDDelay).To(Equal(2))
	})

	Context("with a network builder", func() {
		var (
			mockCtrl *gomock.Controller
			nb       *MockNetworkBuilder
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			nb = NewMockNetworkBuilder(mockCtrl)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should pass all nodes to the network builder", func() {
			nb.EXPECT().
				BuildNetwork(gomock.Any(), multicast.MeshXY, 2).
				DoAndReturn(func(
					nodes []hierarchy.Node,
					_ multicast.TopologyKind,
					_ int,
				) error {
					Expect(nodes).To(HaveLen(16 + 16 + 16 + 4))
					return nil
				})

			t, err := MakeBuilder().
				WithConfig(multicastConfig(4)).
				WithNetworkBuilder(nb).
				Build()

			Expect(err).NotTo(HaveOccurred())
			Expect(t.MeshRows()).To(Equal(2))
		})

		It("should not return a topology the network rejected", func() {
			nb.EXPECT().
				BuildNetwork(gomock.Any(), gomock.Any(), gomock.Any()).
				Return(errors.New("no room"))

			t, err := MakeBuilder().
				WithConfig(eightCoreConfig()).
				WithNetworkBuilder(nb).
				WithHook(hook).
				Build()

			Expect(t).To(BeNil())
			Expect(err).To(MatchError(ContainSubstring("no room")))
			Expect(hook.counts).To(BeEmpty())
		})

		It("should not call the network builder after a config error", func() {
			c := eightCoreConfig()
			c.NumDirs = 3

			_, err := MakeBuilder().
				WithConfig(c).
				WithNetworkBuilder(nb).
				Build()

			Expect(topoerr.IsConfigError(err)).To(BeTrue())
		})
	})
})

var _ = Describe("Config", func() {
	It("should read YAML on top of the defaults", func() {
		c, err := ParseConfig([]byte(`
num_cpus: 4
topology: Mesh_XY
mesh_rows: 2
l1:
  size: 128kB
stream:
  enable_float: true
stream_features: [indirect]
`))

		Expect(err).NotTo(HaveOccurred())
		Expect(c.NumCPUs).To(Equal(4))
		Expect(c.L1.Size).To(Equal("128kB"))
		Expect(c.L1.Assoc).To(Equal(16))
		Expect(c.Stream.Float).To(BeTrue())
		Expect(c.Stream.LLC.IssueWidth).To(Equal(1))

		t, err := MakeBuilder().WithConfig(c).Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(t.Flags().Indirect).To(BeTrue())
		Expect(t.Kind()).To(Equal(multicast.MeshXY))
	})

	It("should report malformed YAML", func() {
		_, err := ParseConfig([]byte("num_cpus: [1"))

		Expect(err).To(HaveOccurred())
	})

	It("should report a missing file", func() {
		_, err := LoadConfig("/nonexistent/topology.yaml")

		Expect(err).To(HaveOccurred())
	})
})
