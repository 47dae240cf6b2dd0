package services

import (
	"testing"

	"lead-scraper/models"
)

func scoredLeads() []*models.Lead {
	return []*models.Lead{
		{Name: "A", LeadScore: 3},
		{Name: "B", LeadScore: 9},
		{Name: "C", LeadScore: 5},
		{Name: "D", LeadScore: 9},
		{Name: "E", LeadScore: 0},
	}
}

func names(leads []*models.Lead) string {
	s := ""
	for _, l := range leads {
		s += l.Name
	}
	return s
}

func TestProjectFilters(t *testing.T) {
	p := Project(scoredLeads(), 5, false)

	if got := names(p.Leads); got != "BDC" {
		t.Errorf("projected order = %q; want BDC", got)
	}
	if p.HighPriority != 3 {
		t.Errorf("HighPriority = %d; want 3", p.HighPriority)
	}
	if p.Total != 5 {
		t.Errorf("Total = %d; want 5", p.Total)
	}
}

func TestProjectAll(t *testing.T) {
	p := Project(scoredLeads(), 5, true)

	if got := names(p.Leads); got != "BDCAE" {
		t.Errorf("projected order = %q; want BDCAE (stable for ties)", got)
	}
	if p.HighPriority != 3 {
		t.Errorf("HighPriority = %d; want 3 even when unfiltered", p.HighPriority)
	}
}

func TestProjectNothingQualifies(t *testing.T) {
	p := Project(scoredLeads(), 20, false)
	if len(p.Leads) != 0 || p.HighPriority != 0 {
		t.Errorf("expected empty projection, got %d leads, %d high priority", len(p.Leads), p.HighPriority)
	}
	if p.Leads == nil {
		t.Error("Leads should be an empty slice, not nil, so JSON output is []")
	}
}
