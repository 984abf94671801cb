package score

const (
	baseScore = 0.5
	minScore  = 0.1
	maxScore  = 1.0
)

// DefaultReputation is the static source-reliability table. Sources absent
// from the table score at the lowest tier.
var DefaultReputation = map[string]float64{
	"verified_collector": 0.3,
	"field_analyst":      0.2,
	"partner_agency":     0.15,
	"open_source":        0.05,
}

// Scorer derives a reliability score for a normalized record from source
// reputation, payload completeness, and submission priority.
type Scorer struct {
	reputation        map[string]float64
	priorityThreshold int
	priorityBonus     float64
}

// NewScorer builds a Scorer. A nil reputation table falls back to
// DefaultReputation.
func NewScorer(reputation map[string]float64, priorityThreshold int, priorityBonus float64) *Scorer {
	if reputation == nil {
		reputation = DefaultReputation
	}
	return &Scorer{
		reputation:        reputation,
		priorityThreshold: priorityThreshold,
		priorityBonus:     priorityBonus,
	}
}

// Score returns a value in [0.1, 1.0]. A score of exactly zero is not
// representable: total distrust is clamped up to the floor.
func (s *Scorer) Score(normalized map[string]any, source string, priority int) float64 {
	score := baseScore
	score += s.reputation[source]
	score += completeness(normalized)
	if priority > s.priorityThreshold {
		score += s.priorityBonus
	}
	return clamp(score)
}

// completeness is the fraction of non-empty top-level fields.
func completeness(normalized map[string]any) float64 {
	if len(normalized) == 0 {
		return 0
	}
	filled := 0
	for _, v := range normalized {
		if !empty(v) {
			filled++
		}
	}
	return float64(filled) / float64(len(normalized))
}

func empty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	return false
}

func clamp(score float64) float64 {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
