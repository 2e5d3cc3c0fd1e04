package hooking

import (
	"fmt"
	"log"
)

// LogHook writes one line per hook invocation.
type LogHook struct {
	*log.Logger

	// Positions limits the logged positions. Nil logs all of them.
	Positions []*HookPos
}

// NewLogHook creates a LogHook that writes to logger.
func NewLogHook(logger *log.Logger, positions ...*HookPos) *LogHook {
	return &LogHook{Logger: logger, Positions: positions}
}

// Func logs the position and the item.
func (h *LogHook) Func(ctx HookCtx) {
	if !h.wants(ctx.Pos) {
		return
	}

	line := fmt.Sprintf("%s: %v", ctx.Pos.Name, ctx.Item)
	if ctx.Detail != nil {
		line += fmt.Sprintf(" (%v)", ctx.Detail)
	}

	h.Print(line)
}

func (h *LogHook) wants(pos *HookPos) bool {
	if h.Positions == nil {
		return true
	}

	for _, p := range h.Positions {
		if p == pos {
			return true
		}
	}

	return false
}
