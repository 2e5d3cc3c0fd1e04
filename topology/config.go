package topology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/mesitopo/hierarchy"
	"github.com/sarchlab/mesitopo/streamfloat"
)

// LevelConfig configures one level of the hierarchy. Sizes use the "32kB"
// notation.
type LevelConfig struct {
	Size        string               `yaml:"size"`
	Assoc       int                  `yaml:"assoc"`
	ICacheSize  string               `yaml:"icache_size"`
	ICacheAssoc int                  `yaml:"icache_assoc"`
	TBEs        int                  `yaml:"tbes"`
	Latency     hierarchy.Latency    `yaml:"latency"`
	Replacement string               `yaml:"replacement"`
	Prefetcher  hierarchy.Prefetcher `yaml:"prefetcher"`
}

// Config is everything needed to assemble a system.
type Config struct {
	NumCPUs         int    `yaml:"num_cpus"`
	NumClusters     int    `yaml:"num_clusters"`
	NumL2Caches     int    `yaml:"num_l2caches"`
	NumDirs         int    `yaml:"num_dirs"`
	NumDMAs         int    `yaml:"num_dmas"`
	FullSystem      bool   `yaml:"full_system"`
	CachelineSize   uint64 `yaml:"cacheline_size"`
	Topology        string `yaml:"topology"`
	MeshRows        int    `yaml:"mesh_rows"`
	NUMAHighBit     int    `yaml:"numa_high_bit"`
	LLCSelectLowBit int    `yaml:"llc_select_low_bit"`
	IdealSequencer  bool   `yaml:"ideal_ruby_sequencer"`

	L0        LevelConfig `yaml:"l0"`
	L1        LevelConfig `yaml:"l1"`
	L2        LevelConfig `yaml:"l2"`
	Directory LevelConfig `yaml:"directory"`
	DMA       LevelConfig `yaml:"dma"`

	Stream streamfloat.Flags `yaml:"stream"`

	// StreamFeatures turns on stream features by name on top of Stream.
	StreamFeatures []string `yaml:"stream_features"`
}

// DefaultConfig returns a single-core system on a crossbar.
func DefaultConfig() Config {
	return Config{
		NumCPUs:         1,
		NumClusters:     1,
		NumL2Caches:     1,
		NumDirs:         1,
		CachelineSize:   64,
		Topology:        "Crossbar",
		LLCSelectLowBit: 6,
		L0: LevelConfig{
			Size:        "32kB",
			Assoc:       8,
			ICacheSize:  "32kB",
			ICacheAssoc: 4,
			Latency:     hierarchy.Latency{Request: 1, Response: 1},
		},
		L1: LevelConfig{
			Size:    "256kB",
			Assoc:   16,
			TBEs:    16,
			Latency: hierarchy.Latency{Request: 2, Response: 2, ToLowerLevel: 1},
		},
		L2: LevelConfig{
			Size:    "256kB",
			Assoc:   16,
			Latency: hierarchy.Latency{Request: 2, Response: 2, ToLowerLevel: 1},
		},
		Directory: LevelConfig{
			Latency: hierarchy.Latency{ToLowerLevel: 1},
		},
		Stream: streamfloat.DefaultFlags(),
	}
}

// ParseConfig reads a YAML document on top of the defaults.
func ParseConfig(data []byte) (Config, error) {
	c := DefaultConfig()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parsing topology config: %w", err)
	}

	return c, nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading topology config: %w", err)
	}

	return ParseConfig(data)
}

// CPUsPerCluster returns the number of cores in one cluster.
func (c Config) CPUsPerCluster() int {
	if c.NumClusters <= 0 {
		return 0
	}

	return c.NumCPUs / c.NumClusters
}

func (l LevelConfig) params(subject string) (hierarchy.LevelParams, error) {
	p := hierarchy.LevelParams{
		Assoc:       l.Assoc,
		ICacheAssoc: l.ICacheAssoc,
		TBEs:        l.TBEs,
		Latency:     l.Latency,
		Replacement: l.Replacement,
		Prefetcher:  l.Prefetcher,
	}

	var err error
	if l.Size != "" {
		if p.Size, err = hierarchy.ParseSize(l.Size); err != nil {
			return p, fmt.Errorf("%s size: %w", subject, err)
		}
	}

	if l.ICacheSize != "" {
		if p.ICacheSize, err = hierarchy.ParseSize(l.ICacheSize); err != nil {
			return p, fmt.Errorf("%s icache size: %w", subject, err)
		}
	}

	return p, nil
}
