// Package streamfloat holds the feature flags of the stream-floating
// extension and the rules that keep them consistent.
package streamfloat

import (
	"github.com/sarchlab/mesitopo/multicast"
)

// Flags configures stream floating for every controller of one system. A
// single validated Flags value is shared by all nodes.
type Flags struct {
	Float            bool   `yaml:"enable_float"`
	FloatPolicy      string `yaml:"float_policy"`
	FloatLevelPolicy string `yaml:"float_level_policy"`
	Indirect         bool   `yaml:"enable_float_indirect"`
	Pseudo           bool   `yaml:"enable_float_pseudo"`
	Cancel           bool   `yaml:"enable_float_cancel"`
	Subline          bool   `yaml:"enable_float_subline"`
	PartialConfig    bool   `yaml:"enable_float_partial_config"`
	FloatMem         bool   `yaml:"enable_float_mem"`
	Midway           bool   `yaml:"enable_midway_float"`
	MidwayElementIdx int    `yaml:"midway_float_element_idx"`

	IdeaAck         bool `yaml:"enable_float_idea_ack"`
	IdeaEnd         bool `yaml:"enable_float_idea_end"`
	IdeaFlow        bool `yaml:"enable_float_idea_flow"`
	IdeaStore       bool `yaml:"enable_float_idea_store"`
	IdeaMLCPopCheck bool `yaml:"enable_float_idea_mlc_pop_check"`
	CompactStore    bool `yaml:"enable_float_compact_store"`
	AdvanceMigrate  bool `yaml:"enable_float_advance_migrate"`

	Multicast                    bool                  `yaml:"enable_float_multicast"`
	MulticastGroupSize           int                   `yaml:"llc_multicast_group_size"`
	MulticastIssuePolicy         multicast.IssuePolicy `yaml:"llc_multicast_issue_policy"`
	MulticastMaxIndReqPerMessage int                   `yaml:"llc_multicast_max_ind_req_per_message"`
	MulticastIndReqBankGroupSize int                   `yaml:"llc_multicast_ind_req_bank_group_size"`

	MLCStreamBufferInitNumEntries int    `yaml:"mlc_stream_buffer_init_num_entries"`
	MLCStreamBufferToSegmentRatio int    `yaml:"mlc_stream_buffer_to_segment_ratio"`
	MLCGenerateDirectRange        bool   `yaml:"mlc_generate_direct_range"`
	RangeSync                     bool   `yaml:"enable_stream_range_sync"`
	ZeroComputeLatency            bool   `yaml:"enable_stream_zero_compute_latency"`
	FloatIndirectReduction        bool   `yaml:"enable_stream_float_indirect_reduction"`
	TwoLevelIndirectStoreCompute  bool   `yaml:"enable_stream_float_two_level_indirect_store_compute"`
	FineGrainedNearDataComputing  bool   `yaml:"enable_fine_grained_near_data_computing"`
	HasScalarALU                  bool   `yaml:"has_scalar_alu"`
	AtomicLockType                string `yaml:"stream_atomic_lock_type"`

	ComputeWidth           int `yaml:"compute_width"`
	LLCMaxInflyComputation int `yaml:"llc_max_infly_computation"`
	LLCAccessCoreSIMDDelay int `yaml:"llc_access_core_simd_delay"`

	LLC LevelEngine `yaml:"llc"`
	MC  LevelEngine `yaml:"mc"`

	MCReuseBufferLinesPerCore int `yaml:"mc_reuse_buffer_lines_per_core"`
}

// LevelEngine holds the stream-engine throughput knobs that differ between
// the LLC banks and the memory controllers.
type LevelEngine struct {
	IssueWidth                 int    `yaml:"issue_width"`
	MigrateWidth               int    `yaml:"migrate_width"`
	MaxInflyRequest            int    `yaml:"max_infly_request"`
	NeighborStreamThreshold    int    `yaml:"neighbor_stream_threshold"`
	NeighborMigrationDelay     int    `yaml:"neighbor_migration_delay"`
	NeighborMigrationValveType string `yaml:"neighbor_migration_valve_type"`
}

// DefaultFlags returns flags with floating disabled and the default engine
// widths.
func DefaultFlags() Flags {
	return Flags{
		FloatPolicy:                   "static",
		FloatLevelPolicy:              "static",
		MidwayElementIdx:              -1,
		MulticastGroupSize:            0,
		MulticastIssuePolicy:          multicast.IssueFirst,
		MulticastMaxIndReqPerMessage:  0,
		MulticastIndReqBankGroupSize:  0,
		MLCStreamBufferInitNumEntries: 32,
		MLCStreamBufferToSegmentRatio: 4,
		AtomicLockType:                "single",
		ComputeWidth:                  1,
		LLCMaxInflyComputation:        32,
		LLCAccessCoreSIMDDelay:        0,
		LLC: LevelEngine{
			IssueWidth:                 1,
			MigrateWidth:               1,
			MaxInflyRequest:            8,
			NeighborMigrationValveType: "none",
		},
		MC: LevelEngine{
			IssueWidth:                 1,
			MigrateWidth:               1,
			MaxInflyRequest:            8,
			NeighborMigrationValveType: "none",
		},
		MCReuseBufferLinesPerCore: 0,
	}
}

// StreamLanesEnabled tells if the migrate and indirect channels, and their
// virtual networks, are needed.
func (f *Flags) StreamLanesEnabled() bool {
	return f.Float
}
