package streamfloat

import (
	"strings"

	"github.com/sarchlab/mesitopo/topoerr"
)

var flagSetters = map[string]func(f *Flags){
	"float":                            func(f *Flags) { f.Float = true },
	"indirect":                         func(f *Flags) { f.Indirect = true },
	"pseudo":                           func(f *Flags) { f.Pseudo = true },
	"cancel":                           func(f *Flags) { f.Cancel = true },
	"subline":                          func(f *Flags) { f.Subline = true },
	"partial-config":                   func(f *Flags) { f.PartialConfig = true },
	"float-mem":                        func(f *Flags) { f.FloatMem = true },
	"midway":                           func(f *Flags) { f.Midway = true },
	"idea-ack":                         func(f *Flags) { f.IdeaAck = true },
	"idea-end":                         func(f *Flags) { f.IdeaEnd = true },
	"idea-flow":                        func(f *Flags) { f.IdeaFlow = true },
	"idea-store":                       func(f *Flags) { f.IdeaStore = true },
	"idea-mlc-pop-check":               func(f *Flags) { f.IdeaMLCPopCheck = true },
	"compact-store":                    func(f *Flags) { f.CompactStore = true },
	"advance-migrate":                  func(f *Flags) { f.AdvanceMigrate = true },
	"multicast":                        func(f *Flags) { f.Multicast = true },
	"range-sync":                       func(f *Flags) { f.RangeSync = true },
	"zero-compute-latency":             func(f *Flags) { f.ZeroComputeLatency = true },
	"indirect-reduction":               func(f *Flags) { f.FloatIndirectReduction = true },
	"two-level-indirect-store-compute": func(f *Flags) { f.TwoLevelIndirectStoreCompute = true },
	"fine-grained-ndc":                 func(f *Flags) { f.FineGrainedNearDataComputing = true },
	"scalar-alu":                       func(f *Flags) { f.HasScalarALU = true },
	"mlc-direct-range":                 func(f *Flags) { f.MLCGenerateDirectRange = true },
}

// ParseFlagList turns on the named features on top of base. Names are
// case-insensitive and may repeat; their order does not matter.
func ParseFlagList(base Flags, names []string) (Flags, error) {
	f := base

	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}

		set, ok := flagSetters[name]
		if !ok {
			return Flags{}, topoerr.NewConfigError("stream float flags",
				"unknown feature %q", raw)
		}

		set(&f)
	}

	return f, nil
}

// FeatureNames lists every name ParseFlagList accepts.
func FeatureNames() []string {
	names := make([]string, 0, len(flagSetters))
	for n := range flagSetters {
		names = append(names, n)
	}

	return names
}
