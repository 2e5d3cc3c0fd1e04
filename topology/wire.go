package topology

import (
	"github.com/sarchlab/mesitopo/hierarchy"
	"github.com/sarchlab/mesitopo/hooking"
	"github.com/sarchlab/mesitopo/wiring"
)

// port is a channel that every node of a role owns or receives.
type port struct {
	elem    string
	kind    wiring.Kind
	dir     wiring.Direction
	peer    wiring.Endpoint
	ordered bool
}

var dmaPorts = []port{
	{"MandatoryQueue", wiring.Mandatory, wiring.In, wiring.Sequencer, false},
	{"ResponseFromDir", wiring.Response, wiring.In, wiring.Network, true},
	{"RequestToDir", wiring.Request, wiring.Out, wiring.Network, false},
}

var rolePorts = map[hierarchy.Role][]port{
	hierarchy.L0: {
		{"MandatoryQueue", wiring.Mandatory, wiring.In, wiring.Sequencer, false},
		{"PrefetchQueue", wiring.Prefetch, wiring.In, wiring.Prefetcher, false},
	},
	hierarchy.L1: {
		{"RequestToL2", wiring.Request, wiring.Out, wiring.Network, false},
		{"ResponseToL2", wiring.Response, wiring.Out, wiring.Network, false},
		{"UnblockToL2", wiring.Unblock, wiring.Out, wiring.Network, false},
		{"RequestFromL2", wiring.Forward, wiring.In, wiring.Network, false},
		{"ResponseFromL2", wiring.Response, wiring.In, wiring.Network, false},
		{"PrefetchQueue", wiring.Prefetch, wiring.In, wiring.Prefetcher, false},
	},
	hierarchy.L2: {
		{"DirRequestFromL2Cache", wiring.Request, wiring.Out, wiring.Network, false},
		{"L1RequestFromL2Cache", wiring.Forward, wiring.Out, wiring.Network, false},
		{"ResponseFromL2Cache", wiring.Response, wiring.Out, wiring.Network, false},
		{"UnblockToL2Cache", wiring.Unblock, wiring.In, wiring.Network, false},
		{"L1RequestToL2Cache", wiring.Request, wiring.In, wiring.Network, false},
		{"ResponseToL2Cache", wiring.Response, wiring.In, wiring.Network, false},
	},
	hierarchy.Directory: {
		{"RequestToDir", wiring.Request, wiring.In, wiring.Network, false},
		{"ResponseToDir", wiring.Response, wiring.In, wiring.Network, false},
		{"ResponseFromDir", wiring.Response, wiring.Out, wiring.Network, false},
		{"RequestFromDir", wiring.Forward, wiring.Out, wiring.Network, false},
		{"RequestToMemory", wiring.Request, wiring.Out, wiring.Memory, false},
		{"ResponseFromMemory", wiring.Response, wiring.In, wiring.Memory, false},
	},
	hierarchy.DMA: dmaPorts,
	hierarchy.IO:  dmaPorts,
}

var streamLanePorts = []port{
	{"StreamMigrateToNetwork", wiring.StreamMigrate, wiring.Out, wiring.Network, false},
	{"StreamMigrateFromNetwork", wiring.StreamMigrate, wiring.In, wiring.Network, false},
	{"StreamIndirectToNetwork", wiring.StreamIndirect, wiring.Out, wiring.Network, false},
	{"StreamIndirectFromNetwork", wiring.StreamIndirect, wiring.In, wiring.Network, false},
}

func (a *assembler) wire(s nodeSet) (wiredSet, error) {
	w := wiredSet{
		nodeSet: s,
		engine:  wiring.NewEngine(s.budget, s.registry),
	}

	for _, n := range s.registry.All() {
		if err := a.wireNode(w.engine, n, s.budget); err != nil {
			return w, err
		}
	}

	return w, a.wirePrivateLinks(w.engine, s.registry)
}

func (a *assembler) wireNode(
	e *wiring.Engine,
	n *hierarchy.Node,
	budget wiring.NetworkBudget,
) error {
	ports := rolePorts[n.Role]
	if budget.StreamLanes > 0 && n.Role.HasStreamEngine() {
		ports = append(append([]port(nil), ports...), streamLanePorts...)
	}

	for _, p := range ports {
		from, to := p.peer, wiring.NodeEnd(n)
		if p.dir == wiring.Out {
			from, to = to, from
		}

		if err := a.connect(e, p.elem, from, to, p.kind, p.ordered); err != nil {
			return err
		}
	}

	return nil
}

func (a *assembler) wirePrivateLinks(
	e *wiring.Engine,
	r *hierarchy.Registry,
) error {
	l1s := r.Nodes(hierarchy.L1)

	for i, l0 := range r.Nodes(hierarchy.L0) {
		l0End, l1End := wiring.NodeEnd(l0), wiring.NodeEnd(l1s[i])

		err := a.connect(e, "BufferToL1", l0End, l1End, wiring.Link, false)
		if err != nil {
			return err
		}

		err = a.connect(e, "BufferToL0", l1End, l0End, wiring.Link, false)
		if err != nil {
			return err
		}
	}

	return nil
}

func (a *assembler) connect(
	e *wiring.Engine,
	elem string,
	from, to wiring.Endpoint,
	kind wiring.Kind,
	ordered bool,
) error {
	c, err := e.Connect(elem, from, to, kind, ordered)
	if err != nil {
		return err
	}

	a.notify(hooking.HookCtx{
		Domain: a,
		Pos:    hooking.HookPosChannelConnected,
		Item:   c.Name,
		Detail: c.Kind,
	})

	return nil
}
