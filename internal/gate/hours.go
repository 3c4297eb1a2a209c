package gate

import (
	"strings"

	"dealflow/internal/domain"
)

var baseHours = map[domain.Complexity]float64{
	domain.ComplexityLow:    2,
	domain.ComplexityMedium: 6,
	domain.ComplexityHigh:   16,
}

// keywordHours are additive bumps for work the description implies.
var keywordHours = []struct {
	keyword string
	hours   float64
}{
	{"api", 2},
	{"scrap", 3},
	{"bot", 3},
	{"database", 2},
	{"auth", 2},
	{"payment", 4},
	{"dashboard", 4},
	{"integration", 3},
	{"migration", 3},
	{"deploy", 1},
}

// EstimateHours converts a description and complexity bucket into an effort
// estimate. Deterministic, keyword-driven.
func EstimateHours(description string, complexity domain.Complexity) float64 {
	hours, ok := baseHours[complexity]
	if !ok {
		hours = baseHours[domain.ComplexityMedium]
	}
	lower := strings.ToLower(description)
	for _, k := range keywordHours {
		if strings.Contains(lower, k.keyword) {
			hours += k.hours
		}
	}
	if strings.Contains(lower, "simple") || strings.Contains(lower, "basic") {
		hours *= 0.6
	}
	if strings.Contains(lower, "urgent") || strings.Contains(lower, "asap") {
		hours *= 0.8
	}
	if hours < 1 {
		hours = 1
	}
	return hours
}
