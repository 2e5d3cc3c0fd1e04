package netbuild

import (
	"log"

	"github.com/sarchlab/mesitopo/hierarchy"
	"github.com/sarchlab/mesitopo/multicast"
	"github.com/sarchlab/mesitopo/topoerr"
)

// Builder places nodes on a network. It can be handed to the topology
// builder as its network builder.
type Builder struct {
	logger  *log.Logger
	network *Network
}

// NewBuilder creates a Builder. The logger may be nil.
func NewBuilder(logger *log.Logger) *Builder {
	return &Builder{logger: logger}
}

// Network returns the network placed by the last BuildNetwork call.
func (b *Builder) Network() *Network {
	return b.network
}

// BuildNetwork places the nodes according to the topology kind.
func (b *Builder) BuildNetwork(
	nodes []hierarchy.Node,
	kind multicast.TopologyKind,
	meshRows int,
) error {
	var (
		n   *Network
		err error
	)

	if kind.IsMeshLike() {
		n, err = placeMesh(nodes, kind, meshRows)
	} else {
		n = placeFlat(nodes, kind)
	}

	if err != nil {
		return err
	}

	b.network = n

	if b.logger != nil {
		b.logger.Printf("%s network: %d routers, %d links",
			kind, len(n.Routers), n.NumLinks)
	}

	return nil
}

func byRole(nodes []hierarchy.Node) map[hierarchy.Role][]hierarchy.Node {
	m := make(map[hierarchy.Role][]hierarchy.Node)
	for _, n := range nodes {
		m[n.Role] = append(m[n.Role], n)
	}

	return m
}

// placeMesh puts one tile per core. A tile holds the private caches of its
// core and the banks that are interleaved onto it.
func placeMesh(
	nodes []hierarchy.Node,
	kind multicast.TopologyKind,
	rows int,
) (*Network, error) {
	roles := byRole(nodes)
	numTiles := len(roles[hierarchy.L1])

	if numTiles == 0 {
		return nil, topoerr.NewConfigError("mesh", "no cores to place")
	}

	if rows <= 0 || numTiles%rows != 0 {
		return nil, topoerr.NewConfigError("mesh_rows",
			"%d tiles cannot be laid out in %d rows", numTiles, rows)
	}

	n := newNetwork(kind)
	n.Rows = rows
	n.Cols = numTiles / rows

	for y := 0; y < n.Rows; y++ {
		for x := 0; x < n.Cols; x++ {
			n.addRouter(x, y)
		}
	}

	n.NumLinks = 2 * (n.Rows*(n.Cols-1) + n.Cols*(n.Rows-1))

	for _, role := range []hierarchy.Role{hierarchy.L0, hierarchy.L1} {
		for _, node := range roles[role] {
			n.attach(n.Routers[node.ID], node.Name)
		}
	}

	for _, node := range roles[hierarchy.L2] {
		n.attach(n.Routers[node.ID%numTiles], node.Name)
	}

	dirs := roles[hierarchy.Directory]
	for i, node := range dirs {
		n.attach(n.directoryRouter(i, len(dirs)), node.Name)
	}

	for _, role := range []hierarchy.Role{hierarchy.DMA, hierarchy.IO} {
		for _, node := range roles[role] {
			n.attach(n.Routers[0], node.Name)
		}
	}

	return n, nil
}

func (n *Network) directoryRouter(i, numDirs int) *Router {
	switch n.Kind {
	case multicast.MeshDirCornersXY:
		corners := []int{
			0, n.Cols - 1, (n.Rows - 1) * n.Cols, n.Rows*n.Cols - 1,
		}

		return n.Routers[corners[i%len(corners)]]
	case multicast.MeshDirXY:
		return n.Routers[(i%n.Rows)*n.Cols]
	default:
		return n.Routers[i*len(n.Routers)/numDirs]
	}
}

// placeFlat gives each node its own router.
func placeFlat(nodes []hierarchy.Node, kind multicast.TopologyKind) *Network {
	n := newNetwork(kind)
	n.Rows = 1
	n.Cols = len(nodes)

	for i, node := range nodes {
		n.attach(n.addRouter(i, 0), node.Name)
	}

	numRouters := len(n.Routers)
	if kind == multicast.Pt2Pt {
		n.NumLinks = numRouters * (numRouters - 1)
	} else {
		n.NumLinks = 2 * numRouters
	}

	return n
}
