package services

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"lead-scraper/models"
	"lead-scraper/utils"
)

// phoneJunk matches everything that cannot appear in a dialable phone number.
// Unicode space separators such as U+00A0 are kept so normaliseText can turn
// them into plain spaces.
var phoneJunk = regexp.MustCompile(`[^\d+()\-\s\p{Zs}.]`)

// Cleaner normalises scraped leads before they are scored and persisted.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean normalises text fields, drops leads without a canonical link and
// collapses leads that share one. The first lead seen for a link wins.
func (c *Cleaner) Clean(raw []*models.Lead) []*models.Lead {
	seen := utils.NewKeySet()
	result := make([]*models.Lead, 0, len(raw))
	var noLink int

	for _, l := range raw {
		link := CanonicalLink(l.MapsLink)
		if link == "" {
			noLink++
			c.logger.Warn("[cleaner] Dropping lead with empty maps link: %s", l.Name)
			continue
		}
		if !seen.Add(link) {
			c.logger.Debug("[cleaner] Duplicate maps link skipped: %s (%s)", l.Name, link)
			continue
		}

		l.MapsLink = link
		l.Name = normaliseText(l.Name)
		l.Address = normaliseText(l.Address)
		l.Category = normaliseText(l.Category)
		l.Phone = normalisePhone(l.Phone)
		l.Website = strings.TrimSpace(l.Website)
		l.PhotoURL = strings.TrimSpace(l.PhotoURL)
		l.NewestReview = normaliseText(l.NewestReview)
		l.Rating = validRating(l.Rating)
		if l.ReviewCount != nil && *l.ReviewCount < 0 {
			l.ReviewCount = nil
		}
		if l.PhotoCount < 0 {
			l.PhotoCount = 0
		}

		result = append(result, l)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d leads (%d without link, %d duplicate links)",
		len(raw), len(result), noLink, len(raw)-noLink-seen.Size())
	return result
}

// CanonicalLink returns the identity form of a listing link: trimmed, with
// the query string and fragment removed. It returns "" for anything that is
// not an absolute http(s) URL.
func CanonicalLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// validRating keeps ratings inside the 1.0–5.0 scale the provider uses.
func validRating(r *float64) *float64 {
	if r == nil || *r < 1 || *r > 5 {
		return nil
	}
	return r
}

// normalisePhone removes labels and stray characters and collapses spacing.
func normalisePhone(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "tel:")
	s = phoneJunk.ReplaceAllString(s, "")
	return normaliseText(s)
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
