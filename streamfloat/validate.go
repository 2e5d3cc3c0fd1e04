package streamfloat

import (
	"github.com/sarchlab/mesitopo/multicast"
	"github.com/sarchlab/mesitopo/topoerr"
)

// A dependency states that one feature can only be enabled together with a
// condition on other features or on the topology.
type dependency struct {
	subject  string
	name     string
	enabled  func(f *Flags) bool
	requires func(f *Flags, kind multicast.TopologyKind) bool
}

// The dependency lattice. Rules are checked in this order so that the same
// flags always report the same violation.
var dependencies = []dependency{
	{
		subject:  "enable_float_indirect",
		name:     "indirect-float requires float",
		enabled:  func(f *Flags) bool { return f.Indirect },
		requires: func(f *Flags, _ multicast.TopologyKind) bool { return f.Float },
	},
	{
		subject:  "enable_float_pseudo",
		name:     "pseudo-float requires indirect-float",
		enabled:  func(f *Flags) bool { return f.Pseudo },
		requires: func(f *Flags, _ multicast.TopologyKind) bool { return f.Indirect },
	},
	{
		subject: "topology/multicast",
		name:    "multicast requires a mesh topology",
		enabled: func(f *Flags) bool { return f.Multicast },
		requires: func(_ *Flags, kind multicast.TopologyKind) bool {
			return kind.IsMeshLike()
		},
	},
	{
		subject:  "enable_midway_float",
		name:     "midway-float requires float",
		enabled:  func(f *Flags) bool { return f.Midway },
		requires: func(f *Flags, _ multicast.TopologyKind) bool { return f.Float },
	},
}

var (
	floatPolicies      = []string{"static", "manual", "smart", "smart-computation"}
	floatLevelPolicies = []string{"static", "manual", "smart"}
	atomicLockTypes    = []string{"single", "multi-reader"}
	valveTypes         = []string{"none", "all", "hard"}
)

// Validate checks the dependency lattice and the flag values for a system
// that uses the given topology kind. It does not modify the flags.
func Validate(f Flags, kind multicast.TopologyKind) error {
	for _, d := range dependencies {
		if d.enabled(&f) && !d.requires(&f, kind) {
			return topoerr.NewConfigError(d.subject,
				"%s (topology %s)", d.name, kind)
		}
	}

	return validateValues(&f)
}

func validateValues(f *Flags) error {
	if err := oneOf("float_policy", f.FloatPolicy, floatPolicies); err != nil {
		return err
	}

	err := oneOf("float_level_policy", f.FloatLevelPolicy, floatLevelPolicies)
	if err != nil {
		return err
	}

	err = oneOf("stream_atomic_lock_type", f.AtomicLockType, atomicLockTypes)
	if err != nil {
		return err
	}

	if err := validateLevel("llc", f.LLC); err != nil {
		return err
	}

	if err := validateLevel("mc", f.MC); err != nil {
		return err
	}

	if f.Multicast {
		if f.MulticastGroupSize <= 0 {
			return topoerr.NewConfigError("llc_multicast_group_size",
				"must be positive when multicast is enabled, got %d",
				f.MulticastGroupSize)
		}

		_, err := multicast.ParseIssuePolicy(string(f.MulticastIssuePolicy))
		if err != nil {
			return err
		}
	}

	if f.Float && f.ComputeWidth <= 0 {
		return topoerr.NewConfigError("compute_width",
			"must be positive when float is enabled, got %d", f.ComputeWidth)
	}

	return nil
}

func validateLevel(prefix string, l LevelEngine) error {
	err := oneOf(prefix+".neighbor_migration_valve_type",
		l.NeighborMigrationValveType, valveTypes)
	if err != nil {
		return err
	}

	if l.IssueWidth <= 0 || l.MigrateWidth <= 0 || l.MaxInflyRequest <= 0 {
		return topoerr.NewConfigError(prefix,
			"issue width %d, migrate width %d and max in-flight requests %d "+
				"must all be positive",
			l.IssueWidth, l.MigrateWidth, l.MaxInflyRequest)
	}

	return nil
}

func oneOf(subject, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}

	return topoerr.NewConfigError(subject,
		"unknown value %q, expecting one of %v", value, allowed)
}
