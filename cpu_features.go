package tilegrid

import (
	"strings"

	"golang.org/x/sys/cpu"
)

// CPUFeatures records the instruction set extensions the tiling
// heuristics care about.
type CPUFeatures struct {
	HasAVX      bool
	HasAVX2     bool
	HasAVX512F  bool
	HasAVX512DQ bool
	HasFMA      bool
	HasSSE4     bool
	HasNEON     bool
}

var cpuFeatures CPUFeatures

func init() {
	cpuFeatures = CPUFeatures{
		HasSSE4:     cpu.X86.HasSSE41 || cpu.X86.HasSSE42,
		HasAVX:      cpu.X86.HasAVX,
		HasAVX2:     cpu.X86.HasAVX2,
		HasAVX512F:  cpu.X86.HasAVX512F,
		HasAVX512DQ: cpu.X86.HasAVX512DQ,
		HasFMA:      cpu.X86.HasFMA,
		HasNEON:     cpu.ARM64.HasASIMD,
	}
}

// VectorWidth returns the usable SIMD width in float32 lanes. The
// candidate table uses it to decide whether the widest tiles are worth
// timing.
func VectorWidth() int {
	switch {
	case cpuFeatures.HasAVX512F:
		return AVX512VectorSize
	case cpuFeatures.HasAVX2:
		return AVX2VectorSize
	case cpuFeatures.HasSSE4, cpuFeatures.HasNEON:
		return 4
	default:
		return 1
	}
}

// CPUInfo returns a printable summary of detected features.
func CPUInfo() string {
	var features []string
	for _, f := range []struct {
		name string
		on   bool
	}{
		{"SSE4", cpuFeatures.HasSSE4},
		{"AVX", cpuFeatures.HasAVX},
		{"AVX2", cpuFeatures.HasAVX2},
		{"FMA", cpuFeatures.HasFMA},
		{"AVX512F", cpuFeatures.HasAVX512F},
		{"AVX512DQ", cpuFeatures.HasAVX512DQ},
		{"NEON", cpuFeatures.HasNEON},
	} {
		if f.on {
			features = append(features, f.name)
		}
	}
	if len(features) == 0 {
		return "scalar"
	}
	return strings.Join(features, ",")
}
