package wiring

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mesitopo/addressing"
	"github.com/sarchlab/mesitopo/hierarchy"
	"github.com/sarchlab/mesitopo/streamfloat"
	"github.com/sarchlab/mesitopo/topoerr"
)

type fixture struct {
	factory *hierarchy.Factory
	engine  *Engine
	l0, l1  *hierarchy.Node
	l2      *hierarchy.Node
	dir     *hierarchy.Node
	dma     *hierarchy.Node
}

func newFixture(float bool) *fixture {
	addrMap, err := addressing.Derive(addressing.Params{
		LineSize:         64,
		NumCores:         1,
		NumClusters:      1,
		NumL2Banks:       1,
		BankSelectLowBit: 6,
		NumDirectories:   1,
	})
	Expect(err).NotTo(HaveOccurred())

	flags := streamfloat.DefaultFlags()
	flags.Float = float
	budget := NewNetworkBudget(float)

	f := &fixture{
		factory: hierarchy.NewFactory("System", addrMap, &flags, budget.Total()),
	}
	f.engine = NewEngine(budget, f.factory.Registry())

	cache := hierarchy.LevelParams{Size: 4 * hierarchy.KB, Assoc: 4}
	f.l0, f.l1, err = f.factory.BuildPrivateNodes(0, 0, cache, cache)
	Expect(err).NotTo(HaveOccurred())
	f.l2, err = f.factory.BuildSharedBankNode(0, 0, cache)
	Expect(err).NotTo(HaveOccurred())
	f.dir, err = f.factory.BuildDirectoryNode(0, hierarchy.LevelParams{})
	Expect(err).NotTo(HaveOccurred())
	f.dma, err = f.factory.BuildDMANode(0, hierarchy.LevelParams{})
	Expect(err).NotTo(HaveOccurred())

	return f
}

func (f *fixture) connect(
	elem string,
	from, to Endpoint,
	kind Kind,
	ordered bool,
) {
	_, err := f.engine.Connect(elem, from, to, kind, ordered)
	Expect(err).NotTo(HaveOccurred())
}

func (f *fixture) wirePrivate() {
	l0, l1 := NodeEnd(f.l0), NodeEnd(f.l1)

	f.connect("MandatoryQueue", Sequencer, l0, Mandatory, false)
	f.connect("PrefetchQueue", Prefetcher, l0, Prefetch, false)
	f.connect("BufferToL1", l0, l1, Link, false)
	f.connect("BufferFromL1", l1, l0, Link, false)
	f.connect("RequestToL2", l1, Network, Request, false)
	f.connect("ResponseToL2", l1, Network, Response, false)
	f.connect("UnblockToL2", l1, Network, Unblock, false)
	f.connect("RequestFromL2", Network, l1, Forward, false)
	f.connect("ResponseFromL2", Network, l1, Response, false)
	f.connect("PrefetchQueue", Prefetcher, l1, Prefetch, false)
}

func (f *fixture) wireShared(float bool) {
	l2, dir, dma := NodeEnd(f.l2), NodeEnd(f.dir), NodeEnd(f.dma)

	f.connect("DirRequestFromL2Cache", l2, Network, Request, false)
	f.connect("L1RequestFromL2Cache", l2, Network, Forward, false)
	f.connect("ResponseFromL2Cache", l2, Network, Response, false)
	f.connect("L1RequestToL2Cache", Network, l2, Request, false)
	f.connect("ResponseToL2Cache", Network, l2, Response, false)
	f.connect("UnblockToL2Cache", Network, l2, Unblock, false)

	f.connect("RequestToDir", Network, dir, Request, false)
	f.connect("ResponseToDir", Network, dir, Response, false)
	f.connect("ResponseFromDir", dir, Network, Response, false)
	f.connect("RequestFromDir", dir, Network, Forward, false)
	f.connect("RequestToMemory", dir, Memory, Request, false)
	f.connect("ResponseFromMemory", Memory, dir, Response, false)

	if float {
		for _, n := range []Endpoint{l2, dir} {
			f.connect("StreamMigrateFromNetwork", Network, n, StreamMigrate, false)
			f.connect("StreamMigrateToNetwork", n, Network, StreamMigrate, false)
			f.connect("StreamIndirectFromNetwork", Network, n, StreamIndirect, false)
			f.connect("StreamIndirectToNetwork", n, Network, StreamIndirect, false)
		}
	}

	f.connect("MandatoryQueue", Sequencer, dma, Mandatory, false)
	f.connect("ResponseFromDir", Network, dma, Response, true)
	f.connect("RequestToDir", dma, Network, Request, false)
}

var _ = Describe("Engine", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture(true)
	})

	It("should name channels after their owner", func() {
		c, err := f.engine.Connect("RequestToL2",
			NodeEnd(f.l1), Network, Request, false)

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Name).To(Equal("System.L1Cache[0].RequestToL2"))
		Expect(c.VirtualNetwork).To(Equal(0))
		Expect(c.OnNetwork()).To(BeTrue())
	})

	It("should keep node-to-node channels off the network", func() {
		c, err := f.engine.Connect("BufferToL1",
			NodeEnd(f.l0), NodeEnd(f.l1), Link, false)

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Name).To(Equal("System.L0Cache[0].BufferToL1"))
		Expect(c.OnNetwork()).To(BeFalse())
	})

	It("should keep memory channels off the network", func() {
		c, err := f.engine.Connect("RequestToMemory",
			NodeEnd(f.dir), Memory, Request, false)

		Expect(err).NotTo(HaveOccurred())
		Expect(c.VirtualNetwork).To(Equal(NoVirtualNetwork))
	})

	It("should reject a second channel in the same slot", func() {
		f.connect("RequestToL2", NodeEnd(f.l1), Network, Request, false)

		_, err := f.engine.Connect("RequestToL2Again",
			NodeEnd(f.l1), Network, Request, false)

		Expect(topoerr.IsConfigError(err)).To(BeTrue())
		Expect(f.engine.Channels()).To(HaveLen(1))
	})

	It("should tell slots apart by peer", func() {
		f.connect("ResponseToDir", Network, NodeEnd(f.dir), Response, false)

		_, err := f.engine.Connect("ResponseFromMemory",
			Memory, NodeEnd(f.dir), Response, false)

		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject unregistered nodes", func() {
		stranger := &hierarchy.Node{
			ID: 0, Role: hierarchy.L1, Name: "System.L1Cache[0]",
		}

		_, err := f.engine.Connect("RequestToL2",
			NodeEnd(stranger), Network, Request, false)

		Expect(topoerr.IsConfigError(err)).To(BeTrue())
	})

	It("should reject channels without a node", func() {
		_, err := f.engine.Connect("Loop", Network, Memory, Request, false)

		Expect(topoerr.IsConfigError(err)).To(BeTrue())
	})

	It("should reject unset ends", func() {
		_, err := f.engine.Connect("Dangling",
			NodeEnd(f.l1), Endpoint{}, Request, false)

		Expect(topoerr.IsConfigError(err)).To(BeTrue())
	})

	It("should list the channels of a node", func() {
		f.wirePrivate()

		Expect(f.engine.ChannelsOf(f.l0)).To(HaveLen(4))
		Expect(f.engine.ChannelsOf(f.l1)).To(HaveLen(8))
	})

	Context("when verifying", func() {
		It("should accept a fully wired system", func() {
			f.wirePrivate()
			f.wireShared(true)

			Expect(f.engine.VerifyComplete(f.factory.Registry().All())).
				To(Succeed())
		})

		It("should find a missing slot", func() {
			f.wirePrivate()

			err := f.engine.VerifyComplete(f.factory.Registry().All())

			Expect(topoerr.IsConfigError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("System.L2Cache[0]"))
		})

		It("should require stream lanes when floating", func() {
			f.wirePrivate()
			f.wireShared(false)

			err := f.engine.VerifyComplete(f.factory.Registry().All())

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("StreamMigrate"))
		})

		It("should require the DMA response channel to be ordered", func() {
			g := newFixture(false)
			g.wirePrivate()

			l2, dir, dma := NodeEnd(g.l2), NodeEnd(g.dir), NodeEnd(g.dma)
			g.connect("DirRequestFromL2Cache", l2, Network, Request, false)
			g.connect("L1RequestFromL2Cache", l2, Network, Forward, false)
			g.connect("ResponseFromL2Cache", l2, Network, Response, false)
			g.connect("L1RequestToL2Cache", Network, l2, Request, false)
			g.connect("ResponseToL2Cache", Network, l2, Response, false)
			g.connect("UnblockToL2Cache", Network, l2, Unblock, false)
			g.connect("RequestToDir", Network, dir, Request, false)
			g.connect("ResponseToDir", Network, dir, Response, false)
			g.connect("ResponseFromDir", dir, Network, Response, false)
			g.connect("RequestFromDir", dir, Network, Forward, false)
			g.connect("RequestToMemory", dir, Memory, Request, false)
			g.connect("ResponseFromMemory", Memory, dir, Response, false)
			g.connect("MandatoryQueue", Sequencer, dma, Mandatory, false)
			g.connect("ResponseFromDir", Network, dma, Response, false)
			g.connect("RequestToDir", dma, Network, Request, false)

			err := g.engine.VerifyComplete(g.factory.Registry().All())

			Expect(topoerr.IsConfigError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("ordered"))
		})

		It("should find nodes with another network budget", func() {
			f.wirePrivate()
			f.wireShared(true)
			odd := f.factory.Registry().All()
			lied := *odd[0]
			lied.VirtualNetworks = 3
			odd[0] = &lied

			err := f.engine.VerifyComplete(odd)

			Expect(topoerr.IsInvariantViolation(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("virtual networks"))
		})
	})
})
