// Package points normalizes heterogeneous story-point values onto a single
// numeric scale. Every component that sums points must go through this
// package so cross-component totals agree.
package points

import (
	"strconv"
	"strings"

	"github.com/trackline/sprint-insights/internal/model"
)

// sizeScale maps categorical size codes to points. Unknown codes and "?"
// count as zero so dirty data never breaks an aggregate.
var sizeScale = map[string]float64{
	"XS":  1,
	"S":   3,
	"M":   5,
	"L":   8,
	"XL":  13,
	"XXL": 21,
	"?":   0,
}

// Normalize converts a raw story-point value to a non-negative number.
// Numeric values pass through, numeric strings are parsed, size codes are
// looked up, and anything unrecognized maps to zero.
func Normalize(p model.StoryPoints) float64 {
	raw := strings.TrimSpace(string(p))
	if raw == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		if f < 0 {
			return 0
		}
		return f
	}
	return sizeScale[strings.ToUpper(raw)]
}

// Sum totals the normalized points of a set of issues.
func Sum(issues []model.Issue) float64 {
	var total float64
	for i := range issues {
		total += Normalize(issues[i].StoryPoints)
	}
	return total
}

// SumDone totals the normalized points of the done issues in the set.
func SumDone(issues []model.Issue) float64 {
	var total float64
	for i := range issues {
		if issues[i].Done() {
			total += Normalize(issues[i].StoryPoints)
		}
	}
	return total
}
