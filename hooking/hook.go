// Package hooking lets observers follow a topology while it is assembled.
package hooking

// HookPos names a point of the assembly where hooks are invoked.
type HookPos struct {
	Name string
}

// Assembly positions. The events of NodeBuilt, ChannelConnected and
// GroupsPlanned are delivered in assembly order once the topology passed all
// checks, right before TopologyAssembled. A failed assembly invokes no hook.
var (
	// HookPosNodeBuilt is invoked after a controller is created. Item is the
	// node name and Detail is its role.
	HookPosNodeBuilt = &HookPos{Name: "NodeBuilt"}

	// HookPosChannelConnected is invoked after a channel is created. Item is
	// the channel name and Detail is its kind.
	HookPosChannelConnected = &HookPos{Name: "ChannelConnected"}

	// HookPosGroupsPlanned is invoked once the multicast groups are known.
	// Item is the number of groups and Detail is the issue policy.
	HookPosGroupsPlanned = &HookPos{Name: "GroupsPlanned"}

	// HookPosTopologyAssembled is invoked after all checks passed. Item is
	// the *topology.Topology and Detail is its build ID.
	HookPosTopologyAssembled = &HookPos{Name: "TopologyAssembled"}
)

// HookCtx carries what a hook is told about the position it is invoked at.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
	Detail any
}

// Hookable is an object that accepts hooks.
type Hookable interface {
	AcceptHook(hook Hook)
	NumHooks() int
	Hooks() []Hook
}

// Hook is invoked by a Hookable.
type Hook interface {
	Func(ctx HookCtx)
}

// HookableBase implements Hookable for the types that embed it.
type HookableBase struct {
	hookList []Hook
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// Hooks returns the registered hooks.
func (h *HookableBase) Hooks() []Hook {
	hooks := make([]Hook, len(h.hookList))
	copy(hooks, h.hookList)

	return hooks
}

// AcceptHook registers a hook. Registering the same hook twice panics.
func (h *HookableBase) AcceptHook(hook Hook) {
	for _, registered := range h.hookList {
		if registered == hook {
			panic("duplicated hook")
		}
	}

	h.hookList = append(h.hookList, hook)
}

// InvokeHook calls every hook in registration order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}
