// Package confidence scores how complete an extraction is. The score gates
// whether extracted data is merged into the stored profile, so a chatty but
// vague turn does not pollute the profile with fragments.
package confidence

import "finplan-assistant/internal/schemas"

const (
	personalWeight  = 0.3
	financialWeight = 0.4
	goalWeight      = 0.3

	// Field counts a fully described profile section is normalized against.
	expectedPersonalFields  = 5
	expectedFinancialFields = 4

	// PersistenceThreshold is the minimum score at which extracted data is
	// written back to the profile store.
	PersistenceThreshold = 0.5
)

// Score computes a completeness score in [0,1] for one extraction. It is a
// pure function: absent sections contribute zero, and no section can push
// its term past its weight.
func Score(resp *schemas.ChatResponse) float64 {
	if resp == nil {
		return 0
	}

	score := 0.0

	if n := nonNilCount(resp.PersonalInfo); n > 0 {
		score += personalWeight * capped(float64(n)/expectedPersonalFields)
	}
	if len(resp.FinancialInfo) > 0 {
		score += financialWeight * capped(float64(len(resp.FinancialInfo))/expectedFinancialFields)
	}
	if total := len(resp.Goals); total > 0 {
		complete := 0
		for _, g := range resp.Goals {
			if g.Title != "" && g.Category != "" {
				complete++
			}
		}
		score += goalWeight * capped(float64(complete)/float64(total))
	}

	if score < 0 {
		return 0
	}
	return capped(score)
}

// ShouldPersist reports whether an extraction is trustworthy enough to merge
// into the stored profile.
func ShouldPersist(resp *schemas.ChatResponse) bool {
	return resp != nil && resp.HasExtractedData() && Score(resp) > PersistenceThreshold
}

func nonNilCount(m map[string]interface{}) int {
	n := 0
	for _, v := range m {
		if v != nil {
			n++
		}
	}
	return n
}

func capped(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
