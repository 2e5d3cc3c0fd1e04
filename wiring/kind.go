// Package wiring creates the channels between controllers and checks that
// every controller is fully connected.
package wiring

import "fmt"

// Kind is the message class a channel carries.
type Kind int

// Channel kinds.
const (
	Mandatory Kind = iota
	Request
	Response
	Unblock
	Forward
	Prefetch
	StreamMigrate
	StreamIndirect
	Link
)

var kindNames = map[Kind]string{
	Mandatory:      "Mandatory",
	Request:        "Request",
	Response:       "Response",
	Unblock:        "Unblock",
	Forward:        "Forward",
	Prefetch:       "Prefetch",
	StreamMigrate:  "StreamMigrate",
	StreamIndirect: "StreamIndirect",
	Link:           "Link",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsStreamLane tells if the kind belongs to the stream-floating extension.
func (k Kind) IsStreamLane() bool {
	return k == StreamMigrate || k == StreamIndirect
}

// Side is what a channel end is attached to.
type Side int

// Channel end sides. The zero Side marks an end that is not attached.
const (
	SideUnset Side = iota
	SideNode
	SideNetwork
	SideSequencer
	SideMemory
	SidePrefetcher
)

var sideNames = map[Side]string{
	SideUnset:      "Unset",
	SideNode:       "Node",
	SideNetwork:    "Network",
	SideSequencer:  "Sequencer",
	SideMemory:     "Memory",
	SidePrefetcher: "Prefetcher",
}

func (s Side) String() string {
	if n, ok := sideNames[s]; ok {
		return n
	}

	return fmt.Sprintf("Side(%d)", int(s))
}

// Direction tells if a channel leaves or enters a node.
type Direction int

// Directions, seen from the node.
const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "In"
	}

	return "Out"
}
