// Package addressing partitions the physical address space across shared
// cache banks and directories.
//
// Bank selection works at page granularity: bits [BankSelectLowBit,
// BankSelectLowBit+BankSelectBits) choose the bank inside a cluster. A bank
// skips the same window when it computes its own set index, so the set index
// is made of the bits below the window (above the block offset) followed by
// the bits above the window.
package addressing

import (
	"math/bits"

	"github.com/sarchlab/mesitopo/topoerr"
)

// AddressMap holds the address partition constants shared by every node of
// one system build. It is created once by Derive and must not be modified.
type AddressMap struct {
	BlockOffsetBits       int
	BankSelectBits        int
	BankSelectLowBit      int
	BanksPerCluster       int
	NumClusters           int
	DirectorySelectBits   int
	DirectorySelectLowBit int
	NumDirectories        int
	CoresPerRow           int
}

// Params are the inputs that AddressMap constants are derived from.
type Params struct {
	LineSize         uint64
	NumCores         int
	NumClusters      int
	NumL2Banks       int
	BankSelectLowBit int
	NumDirectories   int

	// NUMAHighBit is the highest bit of the directory-select window. Zero
	// selects block-level directory interleaving.
	NUMAHighBit int

	// MeshRows and RowGrouping decide CoresPerRow. Without row grouping all
	// cores form one row.
	MeshRows    int
	RowGrouping bool
}

// Derive validates params and computes the AddressMap.
func Derive(p Params) (*AddressMap, error) {
	blockOffsetBits, err := log2Exact("cacheline_size", p.LineSize)
	if err != nil {
		return nil, err
	}

	if p.NumClusters <= 0 {
		return nil, topoerr.NewConfigError("num_clusters",
			"must be positive, got %d", p.NumClusters)
	}

	if p.NumL2Banks <= 0 || p.NumL2Banks%p.NumClusters != 0 {
		return nil, topoerr.NewConfigError("num_l2caches",
			"%d banks cannot be split evenly over %d clusters",
			p.NumL2Banks, p.NumClusters)
	}

	banksPerCluster := p.NumL2Banks / p.NumClusters

	bankBits, err := log2Exact("l2_banks_per_cluster", uint64(banksPerCluster))
	if err != nil {
		return nil, err
	}

	if p.BankSelectLowBit < blockOffsetBits {
		return nil, topoerr.NewConfigError("llc_select_low_bit",
			"bank-select window [%d, %d) overlaps the block offset bits [0, %d)",
			p.BankSelectLowBit, p.BankSelectLowBit+bankBits, blockOffsetBits)
	}

	dirBits, dirLowBit, err := deriveDirectoryWindow(p, blockOffsetBits)
	if err != nil {
		return nil, err
	}

	coresPerRow, err := deriveCoresPerRow(p)
	if err != nil {
		return nil, err
	}

	return &AddressMap{
		BlockOffsetBits:       blockOffsetBits,
		BankSelectBits:        bankBits,
		BankSelectLowBit:      p.BankSelectLowBit,
		BanksPerCluster:       banksPerCluster,
		NumClusters:           p.NumClusters,
		DirectorySelectBits:   dirBits,
		DirectorySelectLowBit: dirLowBit,
		NumDirectories:        p.NumDirectories,
		CoresPerRow:           coresPerRow,
	}, nil
}

func deriveDirectoryWindow(
	p Params,
	blockOffsetBits int,
) (dirBits, lowBit int, err error) {
	if p.NumDirectories <= 0 {
		return 0, 0, topoerr.NewConfigError("num_dirs",
			"must be positive, got %d", p.NumDirectories)
	}

	dirBits, err = log2Exact("num_dirs", uint64(p.NumDirectories))
	if err != nil {
		return 0, 0, err
	}

	lowBit = blockOffsetBits
	if p.NUMAHighBit > 0 {
		lowBit = p.NUMAHighBit - dirBits + 1
	}

	if lowBit < blockOffsetBits {
		return 0, 0, topoerr.NewConfigError("numa_high_bit",
			"directory-select window [%d, %d) overlaps the block offset bits",
			lowBit, lowBit+dirBits)
	}

	return dirBits, lowBit, nil
}

func deriveCoresPerRow(p Params) (int, error) {
	if p.NumCores <= 0 {
		return 0, topoerr.NewConfigError("num_cpus",
			"must be positive, got %d", p.NumCores)
	}

	if !p.RowGrouping {
		return p.NumCores, nil
	}

	if p.MeshRows <= 0 || p.NumCores%p.MeshRows != 0 {
		return 0, topoerr.NewConfigError("mesh_rows",
			"%d cores cannot be laid out in %d mesh rows",
			p.NumCores, p.MeshRows)
	}

	return p.NumCores / p.MeshRows, nil
}

func log2Exact(subject string, v uint64) (int, error) {
	if v == 0 || v&(v-1) != 0 {
		return 0, topoerr.NewConfigError(subject,
			"must be a power of two, got %d", v)
	}

	return bits.TrailingZeros64(v), nil
}

// MapBank returns (address >> selectLowBit) masked to selectBits bits.
func MapBank(address uint64, selectLowBit, selectBits int) uint64 {
	return (address >> uint(selectLowBit)) & lowMask(selectBits)
}

// MapSetIndexWithSkip removes the skipBits-wide window at skipLowBit from the
// address and then extracts setIndexBits starting at startBit.
func MapSetIndexWithSkip(
	address uint64,
	startBit, setIndexBits, skipLowBit, skipBits int,
) uint64 {
	squeezed := address
	if skipBits > 0 {
		below := address & lowMask(skipLowBit)
		above := address >> uint(skipLowBit+skipBits)
		squeezed = below | above<<uint(skipLowBit)
	}

	return (squeezed >> uint(startBit)) & lowMask(setIndexBits)
}

func lowMask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}

	return (uint64(1) << uint(n)) - 1
}

// LocalBank returns the bank inside a cluster that owns the address.
func (m *AddressMap) LocalBank(address uint64) int {
	return int(MapBank(address, m.BankSelectLowBit, m.BankSelectBits))
}

// OwnerBank returns the global L2 id that owns the address for requests
// coming from the given cluster.
func (m *AddressMap) OwnerBank(address uint64, clusterID int) int {
	return clusterID*m.BanksPerCluster + m.LocalBank(address)
}

// OwnerDirectory returns the directory id that owns the address.
func (m *AddressMap) OwnerDirectory(address uint64) int {
	return int(MapBank(
		address, m.DirectorySelectLowBit, m.DirectorySelectBits))
}

// BankSetIndex returns the set index inside an L2 bank with setIndexBits
// index bits.
func (m *AddressMap) BankSetIndex(address uint64, setIndexBits int) uint64 {
	return MapSetIndexWithSkip(address, m.BlockOffsetBits, setIndexBits,
		m.BankSelectLowBit, m.BankSelectBits)
}

// PrivateSetIndex returns the set index inside a private cache, which does
// not skip any window.
func (m *AddressMap) PrivateSetIndex(address uint64, setIndexBits int) uint64 {
	return MapSetIndexWithSkip(address, m.BlockOffsetBits, setIndexBits, 0, 0)
}

// Equal tells if two maps hold identical constants.
func (m *AddressMap) Equal(o *AddressMap) bool {
	if m == nil || o == nil {
		return m == o
	}

	return *m == *o
}
