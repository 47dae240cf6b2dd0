package services

import (
	"testing"

	"lead-scraper/models"
	"lead-scraper/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

func TestCanonicalLink(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://www.google.com/maps/place/Joes+Plumbing/data=!1", "https://www.google.com/maps/place/Joes+Plumbing/data=!1"},
		{"  https://www.google.com/maps/place/Joes+Plumbing/data=!1?authuser=0&hl=en#x  ", "https://www.google.com/maps/place/Joes+Plumbing/data=!1"},
		{"/maps/place/relative", ""},
		{"javascript:void(0)", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CanonicalLink(tt.raw); got != tt.want {
			t.Errorf("CanonicalLink(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalisePhone(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"(732) 555-0147", "(732) 555-0147"},
		{"tel:+17325550147", "+17325550147"},
		{"  (732)\u00a0555-0147 ", "(732) 555-0147"},
		{"Phone:\u00a0(732)\u202f555-0147", "(732) 555-0147"},
		{"Phone: (732) 555-0147", "(732) 555-0147"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalisePhone(tt.raw); got != tt.want {
			t.Errorf("normalisePhone(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerDropsEmptyLink(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.Lead{
		{Name: "No Link"},
		{Name: "Has Link", MapsLink: "https://www.google.com/maps/place/a"},
	}

	cleaned := c.Clean(raw)
	if len(cleaned) != 1 {
		t.Fatalf("expected 1 lead after dropping empty link, got %d", len(cleaned))
	}
	if cleaned[0].Name != "Has Link" {
		t.Errorf("kept %q; want Has Link", cleaned[0].Name)
	}
}

func TestCleanerDeduplicatesLink(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.Lead{
		{Name: "Joe's Plumbing", MapsLink: "https://www.google.com/maps/place/joes?hl=en"},
		{Name: "Joe's Plumbing LLC", MapsLink: "https://www.google.com/maps/place/joes"},
	}

	cleaned := c.Clean(raw)
	if len(cleaned) != 1 {
		t.Fatalf("expected 1 lead after link dedup, got %d", len(cleaned))
	}
	if cleaned[0].Name != "Joe's Plumbing" {
		t.Errorf("first lead should win, got %q", cleaned[0].Name)
	}
	if cleaned[0].MapsLink != "https://www.google.com/maps/place/joes" {
		t.Errorf("MapsLink = %q; want canonical form", cleaned[0].MapsLink)
	}
}

func TestCleanerNormalisesFields(t *testing.T) {
	c := NewCleaner(newTestLogger())
	bad := 7.5
	neg := -3
	raw := []*models.Lead{{
		Name:        "  Joe's \n Plumbing ",
		Address:     "12  Main St,\tEdison",
		Phone:       " (732) 555-0147 ",
		Website:     " https://joesplumbing.com ",
		MapsLink:    "https://www.google.com/maps/place/joes",
		Rating:      &bad,
		ReviewCount: &neg,
	}}

	l := c.Clean(raw)[0]
	if l.Name != "Joe's Plumbing" {
		t.Errorf("Name = %q", l.Name)
	}
	if l.Address != "12 Main St, Edison" {
		t.Errorf("Address = %q", l.Address)
	}
	if l.Phone != "(732) 555-0147" {
		t.Errorf("Phone = %q", l.Phone)
	}
	if l.Website != "https://joesplumbing.com" {
		t.Errorf("Website = %q", l.Website)
	}
	if l.Rating != nil {
		t.Errorf("out-of-range rating should be dropped, got %v", *l.Rating)
	}
	if l.ReviewCount != nil {
		t.Errorf("negative review count should be dropped, got %v", *l.ReviewCount)
	}
}
