// Package resources parses and compares the string-typed CPU/memory
// quantities used in job resource requirements. Pure functions, no state.
package resources

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/clusterml/master/internal/apierr"
)

var memoryPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([A-Za-z]*)$`)

// memoryMultipliers maps a unit suffix to a multiplier yielding MB.
var memoryMultipliers = map[string]float64{
	"":   1.0 / (1024 * 1024), // bytes -> MB
	"Ki": 1.0 / 1024,
	"Mi": 1,
	"Gi": 1024,
	"Ti": 1024 * 1024,
	"K":  1.0 / 1000,
	"M":  1,
	"G":  1000,
	"T":  1000 * 1000,
}

// ParseCPU parses a CPU quantity string into a core count. Accepts a
// bare decimal ("4") or a millicore suffix ("4000m").
func ParseCPU(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "m") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "m"), 64)
		if err != nil {
			return 0, apierr.New(apierr.KindInvalidQuantity, "invalid cpu quantity %q: %v", s, err)
		}
		return v / 1000.0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, apierr.New(apierr.KindInvalidQuantity, "invalid cpu quantity %q: %v", s, err)
	}
	return v, nil
}

// ParseMemory parses a memory quantity string into whole megabytes.
// Accepts "16Gi", "512Mi", "2G", "1024M", or a bare decimal (bytes).
func ParseMemory(s string) (int, error) {
	s = strings.TrimSpace(s)
	m := memoryPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, apierr.New(apierr.KindInvalidQuantity, "cannot parse memory quantity %q", s)
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, apierr.New(apierr.KindInvalidQuantity, "cannot parse memory quantity %q: %v", s, err)
	}
	unit := m[2]
	mult, ok := memoryMultipliers[unit]
	if !ok {
		return 0, apierr.New(apierr.KindInvalidQuantity, "unknown memory unit %q in %q", unit, s)
	}
	return int(value * mult), nil
}

// CheckResourcesFit reports whether a job's required CPU/memory/GPU fit
// within the available capacity, evaluated in the fixed order CPU, then
// memory, then GPU. Returns the first-failing reason; fits is true only
// if all three checks pass. Comparisons are strict '>' for failure, so
// exactly-equal required/available values fit.
func CheckResourcesFit(requiredCPU, requiredMemory string, requiredGPU int, availCPUCores, availMemoryMB float64, availGPU int) (bool, string, error) {
	cpuNeeded, err := ParseCPU(requiredCPU)
	if err != nil {
		return false, "", err
	}
	memNeeded, err := ParseMemory(requiredMemory)
	if err != nil {
		return false, "", err
	}

	if cpuNeeded > availCPUCores {
		return false, fmt.Sprintf("CPU: need %g, have %g", cpuNeeded, availCPUCores), nil
	}
	if float64(memNeeded) > availMemoryMB {
		return false, fmt.Sprintf("Memory: need %dMB, have %gMB", memNeeded, availMemoryMB), nil
	}
	if requiredGPU > availGPU {
		return false, fmt.Sprintf("GPU: need %d, have %d", requiredGPU, availGPU), nil
	}
	return true, "ok", nil
}
