// Package sysfs describes the cores and caches of an assembled system the
// way a guest operating system enumerates them.
package sysfs

import (
	"github.com/sarchlab/mesitopo/hierarchy"
	"github.com/sarchlab/mesitopo/topoerr"
	"github.com/sarchlab/mesitopo/topology"
)

// The L0 caches are reported with a fixed small geometry.
const (
	l0ReportedSize  = 4096
	l0ReportedAssoc = 1
)

// CPU is one core.
type CPU struct {
	ID                int
	PhysicalPackageID int
	CoreSiblings      []int
	ThreadSiblings    []int
}

// Cache is one cache as seen by the cores that share it.
type Cache struct {
	Level    int
	Type     string
	Size     uint64
	LineSize uint64
	Assoc    int
	CPUs     []int
}

// Description is the full core and cache listing.
type Description struct {
	CPUs   []CPU
	Caches []Cache
}

// Describe lists the cores and caches of a topology. Full-system builds get
// this information from the simulated firmware instead, so they are
// rejected.
func Describe(t *topology.Topology) (Description, error) {
	if t.FullSystem() {
		return Description{}, topoerr.NewConfigError("full_system",
			"file system descriptions are only for syscall emulation")
	}

	var d Description

	lineSize := uint64(1) << uint(t.AddressMap().BlockOffsetBits)
	numCPUs := t.NumNodes(hierarchy.L1)
	allCPUs := cpuRange(0, numCPUs)

	for _, l1 := range t.Nodes(hierarchy.L1) {
		core := l1.ID

		d.CPUs = append(d.CPUs, CPU{
			ID:             core,
			CoreSiblings:   allCPUs,
			ThreadSiblings: []int{},
		})

		for _, typ := range []string{"Instruction", "Data"} {
			d.Caches = append(d.Caches, Cache{
				Level:    0,
				Type:     typ,
				Size:     l0ReportedSize,
				LineSize: lineSize,
				Assoc:    l0ReportedAssoc,
				CPUs:     []int{core},
			})
		}

		d.Caches = append(d.Caches, Cache{
			Level:    1,
			Type:     "Unified",
			Size:     l1.Geometry.Size,
			LineSize: lineSize,
			Assoc:    l1.Geometry.Assoc,
			CPUs:     []int{core},
		})
	}

	d.Caches = append(d.Caches, sharedCaches(t, lineSize)...)

	return d, nil
}

func sharedCaches(t *topology.Topology, lineSize uint64) []Cache {
	addrMap := t.AddressMap()
	numCPUs := t.NumNodes(hierarchy.L1)
	cpusPerCluster := numCPUs / addrMap.NumClusters

	banks := t.Nodes(hierarchy.L2)
	caches := make([]Cache, 0, addrMap.NumClusters)

	for cluster := 0; cluster < addrMap.NumClusters; cluster++ {
		bank := banks[cluster*addrMap.BanksPerCluster]

		caches = append(caches, Cache{
			Level:    2,
			Type:     "Unified",
			Size:     bank.Geometry.Size * uint64(addrMap.BanksPerCluster),
			LineSize: lineSize,
			Assoc:    bank.Geometry.Assoc,
			CPUs: cpuRange(cluster*cpusPerCluster,
				(cluster+1)*cpusPerCluster),
		})
	}

	return caches
}

func cpuRange(from, to int) []int {
	cpus := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		cpus = append(cpus, i)
	}

	return cpus
}

// CachesOf returns the caches a core can see, from the closest level out.
func (d Description) CachesOf(cpu int) []Cache {
	var caches []Cache

	for _, c := range d.Caches {
		for _, shared := range c.CPUs {
			if shared == cpu {
				caches = append(caches, c)
				break
			}
		}
	}

	return caches
}
