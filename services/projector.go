package services

import (
	"sort"

	"lead-scraper/models"
)

// Projection is the output view of one run. Leads holds the leads selected
// for output, highest score first. HighPriority counts every lead at or above
// the threshold, whether or not filtering was applied.
type Projection struct {
	Leads        []*models.Lead
	HighPriority int
	Total        int
}

// SortByScore orders leads by score, highest first. Leads with equal scores
// keep their collection order.
func SortByScore(leads []*models.Lead) {
	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].LeadScore > leads[j].LeadScore
	})
}

// Project sorts leads in place and selects those scoring at least minScore,
// or all of them when all is set.
func Project(leads []*models.Lead, minScore int, all bool) Projection {
	SortByScore(leads)

	p := Projection{Total: len(leads), Leads: make([]*models.Lead, 0, len(leads))}
	for _, l := range leads {
		qualifies := l.LeadScore >= minScore
		if qualifies {
			p.HighPriority++
		}
		if all || qualifies {
			p.Leads = append(p.Leads, l)
		}
	}
	return p
}
