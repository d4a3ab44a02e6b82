package event

import (
	"fmt"
	"strings"
)

// Impact is the closed severity classification of a calendar row.
type Impact string

const (
	ImpactNonEconomic Impact = "non-economic"
	ImpactLow         Impact = "low"
	ImpactMedium      Impact = "medium"
	ImpactHigh        Impact = "high"

	// ImpactUnknown marks rows whose impact marker did not match any known
	// class, or was absent from the markup entirely. Such rows are kept
	// visible in parse output but rejected by the impact filter unless
	// "unknown" is explicitly allowed.
	ImpactUnknown Impact = "unknown"
)

// ParseImpact converts a config-supplied category name into an Impact.
func ParseImpact(s string) (Impact, error) {
	switch Impact(strings.ToLower(strings.TrimSpace(s))) {
	case ImpactNonEconomic:
		return ImpactNonEconomic, nil
	case ImpactLow:
		return ImpactLow, nil
	case ImpactMedium:
		return ImpactMedium, nil
	case ImpactHigh:
		return ImpactHigh, nil
	case ImpactUnknown:
		return ImpactUnknown, nil
	}
	return "", fmt.Errorf("unknown impact category: %q", s)
}
