package hierarchy

import (
	"strconv"
	"strings"

	units "github.com/docker/go-units"

	"github.com/sarchlab/mesitopo/topoerr"
)

// Size units. Cache sizes are binary, so 1kB is 1024 bytes.
const (
	B  uint64 = 1
	KB        = 1024 * B
	MB        = 1024 * KB
	GB        = 1024 * MB
)

// maxSize bounds parsed sizes. Larger inputs overflow while being scaled.
const maxSize = 1 << 60

// ParseSize parses sizes such as "32kB", "256KiB", "1MB", or "4096". Every
// unit is binary.
func ParseSize(s string) (uint64, error) {
	v, err := units.RAMInBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, topoerr.NewConfigError("size", "cannot parse %q", s)
	}

	if v < 0 || v > maxSize {
		return 0, topoerr.NewConfigError("size", "%q is out of range", s)
	}

	return uint64(v), nil
}

// FormatSize prints a size with the largest unit that divides it.
func FormatSize(v uint64) string {
	switch {
	case v >= GB && v%GB == 0:
		return strconv.FormatUint(v/GB, 10) + "GB"
	case v >= MB && v%MB == 0:
		return strconv.FormatUint(v/MB, 10) + "MB"
	case v >= KB && v%KB == 0:
		return strconv.FormatUint(v/KB, 10) + "kB"
	default:
		return strconv.FormatUint(v, 10) + "B"
	}
}
