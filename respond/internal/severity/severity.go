// Package severity maps anomaly scores to operator-facing urgency.
package severity

import (
	"math"

	"github.com/threatlens/threatlens-stack/respond/internal/models"
)

// Rating is a severity tier together with its numeric priority. The two are
// only ever produced together.
type Rating struct {
	Severity models.Severity
	Priority int
}

// tiers are evaluated highest first; a score must strictly exceed the bound.
var tiers = []struct {
	above  float64
	rating Rating
}{
	{0.8, Rating{models.SeverityCritical, 5}},
	{0.6, Rating{models.SeverityHigh, 4}},
	{0.4, Rating{models.SeverityMedium, 3}},
}

var floor = Rating{models.SeverityLow, 2}

// Classify rates an anomaly score. It never fails: NaN and anything at or
// below 0.4 rate low, and scores above 1 are not clamped.
func Classify(score float64) Rating {
	if math.IsNaN(score) {
		return floor
	}
	for _, t := range tiers {
		if score > t.above {
			return t.rating
		}
	}
	return floor
}

// PriorityFor returns the priority paired with sev, or 0 for an unknown tier.
func PriorityFor(sev models.Severity) int {
	if sev == floor.Severity {
		return floor.Priority
	}
	for _, t := range tiers {
		if t.rating.Severity == sev {
			return t.rating.Priority
		}
	}
	return 0
}
