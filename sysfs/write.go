package sysfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Write creates the description as a sysfs-like tree under root, e.g.
// root/devices/system/cpu/cpu0/cache/index2/size.
func Write(root string, d Description) error {
	cpuDir := filepath.Join(root, "devices", "system", "cpu")

	all := make([]int, len(d.CPUs))
	for i, c := range d.CPUs {
		all[i] = c.ID
	}

	files := map[string]string{
		filepath.Join(cpuDir, "online"):   FormatCPUList(all),
		filepath.Join(cpuDir, "possible"): FormatCPUList(all),
	}

	for _, c := range d.CPUs {
		dir := filepath.Join(cpuDir, "cpu"+strconv.Itoa(c.ID))
		addCPUFiles(files, dir, c)

		for i, cache := range d.CachesOf(c.ID) {
			index := filepath.Join(dir, "cache", "index"+strconv.Itoa(i))
			addCacheFiles(files, index, cache)
		}
	}

	for path, content := range files {
		if err := writeFile(path, content); err != nil {
			return err
		}
	}

	return nil
}

func addCPUFiles(files map[string]string, dir string, c CPU) {
	topo := filepath.Join(dir, "topology")
	files[filepath.Join(topo, "physical_package_id")] =
		strconv.Itoa(c.PhysicalPackageID)
	files[filepath.Join(topo, "core_id")] = strconv.Itoa(c.ID)
	files[filepath.Join(topo, "core_siblings_list")] =
		FormatCPUList(c.CoreSiblings)
	files[filepath.Join(topo, "thread_siblings_list")] =
		FormatCPUList(c.ThreadSiblings)
}

func addCacheFiles(files map[string]string, dir string, c Cache) {
	numSets := c.Size / (c.LineSize * uint64(c.Assoc))

	files[filepath.Join(dir, "level")] = strconv.Itoa(c.Level)
	files[filepath.Join(dir, "type")] = c.Type
	files[filepath.Join(dir, "size")] = strconv.FormatUint(c.Size/1024, 10) + "K"
	files[filepath.Join(dir, "coherency_line_size")] =
		strconv.FormatUint(c.LineSize, 10)
	files[filepath.Join(dir, "ways_of_associativity")] = strconv.Itoa(c.Assoc)
	files[filepath.Join(dir, "number_of_sets")] =
		strconv.FormatUint(numSets, 10)
	files[filepath.Join(dir, "shared_cpu_list")] = FormatCPUList(c.CPUs)
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}

	if err := os.WriteFile(path, []byte(content+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}

// FormatCPUList prints a sorted CPU list in the kernel's range notation,
// e.g. "0-3,6".
func FormatCPUList(cpus []int) string {
	var parts []string

	for i := 0; i < len(cpus); {
		j := i
		for j+1 < len(cpus) && cpus[j+1] == cpus[j]+1 {
			j++
		}

		if i == j {
			parts = append(parts, strconv.Itoa(cpus[i]))
		} else {
			parts = append(parts,
				strconv.Itoa(cpus[i])+"-"+strconv.Itoa(cpus[j]))
		}

		i = j + 1
	}

	return strings.Join(parts, ",")
}
