// Package profile stores per-user financial profiles and merges newly
// extracted data into them. The store is an external collaborator: the chat
// pipeline only reads a profile and writes back merged sections.
package profile

import (
	"strings"

	"finplan-assistant/internal/schemas"
)

// Profile is everything the assistant knows about one user.
type Profile struct {
	PersonalInfo  map[string]interface{} `json:"personalInfo,omitempty"`
	FinancialInfo map[string]float64     `json:"financialInfo,omitempty"`
	Goals         []schemas.Goal         `json:"goals,omitempty"`
}

// IsEmpty reports whether nothing is known about the user yet.
func (p *Profile) IsEmpty() bool {
	return p == nil || (len(p.PersonalInfo) == 0 && len(p.FinancialInfo) == 0 && len(p.Goals) == 0)
}

// Merge folds one extraction into the profile. Section maps are merged
// key-wise with incoming non-nil values winning. Goals are append-only,
// deduplicated by title.
func (p *Profile) Merge(resp *schemas.ChatResponse) {
	if resp == nil {
		return
	}

	if len(resp.PersonalInfo) > 0 {
		if p.PersonalInfo == nil {
			p.PersonalInfo = make(map[string]interface{}, len(resp.PersonalInfo))
		}
		for k, v := range resp.PersonalInfo {
			if v != nil {
				p.PersonalInfo[k] = v
			}
		}
	}

	if len(resp.FinancialInfo) > 0 {
		if p.FinancialInfo == nil {
			p.FinancialInfo = make(map[string]float64, len(resp.FinancialInfo))
		}
		for k, v := range resp.FinancialInfo {
			p.FinancialInfo[k] = v
		}
	}

	for _, g := range resp.Goals {
		if !p.hasGoal(g.Title) {
			p.Goals = append(p.Goals, g)
		}
	}
}

func (p *Profile) hasGoal(title string) bool {
	for _, g := range p.Goals {
		if strings.EqualFold(g.Title, title) {
			return true
		}
	}
	return false
}
