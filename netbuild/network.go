// Package netbuild places assembled controllers on routers and answers
// routing questions about the resulting network.
package netbuild

import (
	"github.com/sarchlab/mesitopo/multicast"
	"github.com/sarchlab/mesitopo/topoerr"
)

// Port is the output port a router forwards a message to.
type Port int

// Router ports. Local delivers to a node attached to the router.
const (
	Local Port = iota
	Top
	Bottom
	Left
	Right
	Crossbar
)

var portNames = []string{"Local", "Top", "Bottom", "Left", "Right", "Crossbar"}

func (p Port) String() string {
	return portNames[p]
}

// Router is a switch with the nodes attached to it.
type Router struct {
	ID    int
	X, Y  int
	Nodes []string
}

// Network is the result of placing the nodes.
type Network struct {
	Kind    multicast.TopologyKind
	Rows    int
	Cols    int
	Routers []*Router

	// NumLinks counts the unidirectional router-to-router links.
	NumLinks int

	placement map[string]*Router
}

func newNetwork(kind multicast.TopologyKind) *Network {
	return &Network{
		Kind:      kind,
		placement: make(map[string]*Router),
	}
}

func (n *Network) addRouter(x, y int) *Router {
	r := &Router{ID: len(n.Routers), X: x, Y: y}
	n.Routers = append(n.Routers, r)

	return r
}

func (n *Network) attach(r *Router, node string) {
	r.Nodes = append(r.Nodes, node)
	n.placement[node] = r
}

// RouterOf returns the router a node is attached to.
func (n *Network) RouterOf(node string) (*Router, bool) {
	r, ok := n.placement[node]
	return r, ok
}

// NextHop returns the port that router cur forwards a message for dst to.
// Meshes route X first and then Y.
func (n *Network) NextHop(cur, dst *Router) Port {
	if !n.Kind.IsMeshLike() {
		if cur == dst {
			return Local
		}

		return Crossbar
	}

	switch {
	case dst.X < cur.X:
		return Left
	case dst.X > cur.X:
		return Right
	case dst.Y < cur.Y:
		return Top
	case dst.Y > cur.Y:
		return Bottom
	default:
		return Local
	}
}

// Hops returns the number of router-to-router links a message from src to
// dst crosses.
func (n *Network) Hops(src, dst string) (int, error) {
	s, ok := n.placement[src]
	if !ok {
		return 0, topoerr.NewConfigError(src, "node is not on the network")
	}

	d, ok := n.placement[dst]
	if !ok {
		return 0, topoerr.NewConfigError(dst, "node is not on the network")
	}

	if s == d {
		return 0, nil
	}

	switch n.Kind {
	case multicast.Pt2Pt:
		return 1, nil
	case multicast.Crossbar, multicast.CrossbarGarnet, multicast.Cluster:
		return 2, nil
	}

	hops := 0
	for cur := s; cur != d; hops++ {
		cur = n.step(cur, n.NextHop(cur, d))
	}

	return hops, nil
}

func (n *Network) step(r *Router, p Port) *Router {
	x, y := r.X, r.Y

	switch p {
	case Left:
		x--
	case Right:
		x++
	case Top:
		y--
	case Bottom:
		y++
	}

	return n.Routers[y*n.Cols+x]
}
