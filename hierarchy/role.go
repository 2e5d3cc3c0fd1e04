package hierarchy

import "fmt"

// Role is the position of a controller in the hierarchy.
type Role int

// Roles, ordered from the core towards memory.
const (
	L0 Role = iota
	L1
	L2
	Directory
	DMA
	IO
)

// Roles lists every role in creation order.
var Roles = []Role{L0, L1, L2, Directory, DMA, IO}

var roleNames = map[Role]string{
	L0:        "L0Cache",
	L1:        "L1Cache",
	L2:        "L2Cache",
	Directory: "Directory",
	DMA:       "DMA",
	IO:        "IO",
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}

	return fmt.Sprintf("Role(%d)", int(r))
}

// IsPrivate tells if nodes of the role belong to a single core.
func (r Role) IsPrivate() bool {
	return r == L0 || r == L1
}

// HasStreamEngine tells if nodes of the role host a floating stream engine.
func (r Role) HasStreamEngine() bool {
	return r == L2 || r == Directory
}
