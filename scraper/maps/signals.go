package maps

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"lead-scraper/models"
	"lead-scraper/scraper/extract"
)

var (
	photoCountPattern   = regexp.MustCompile(`(?i)(\d[\d,]*)\s*photo`)
	aboutPattern        = regexp.MustCompile(`(?s)\bAbout\b.*\bFrom the business\b`)
	servicePricePattern = regexp.MustCompile(`(?s)\bService\w*\b.*[$€£]\s?\d`)
	reviewAgePattern    = regexp.MustCompile(`(\d+\s+(?:day|week|month|year)s?\s+ago|an?\s+(?:day|week|month|year)\s+ago)`)
	hoursPattern        = regexp.MustCompile(`Open 24 hours|Opens|Closed|Hours`)
)

// Selectors for the region-presence heuristics.
var (
	descriptionSelectors = []string{`div[aria-label*="About"]`, `div.PYvSYb`, `span[jsan*="description"]`}
	servicesSelectors    = []string{`div[aria-label*="Services"]`}
	hoursSelectors       = []string{`div[aria-label*="Hours"]`, `button[data-item-id*="oh"]`, `table.eK4R0e`}
)

const (
	photoButtonSelector = `button[jsaction*="photo"]`
	reviewDateSelector  = `span.rsqaWe`
	ownerResponseNeedle = "Response from the owner"
	ownerResponsePrefix = "Response from"
)

// ExtractSignals computes the quality signals of a rendered detail page.
// Each signal tries its structural heuristic first and falls back to the
// visible text of the main region. Any signal that cannot be read keeps its
// zero value.
func ExtractSignals(doc *goquery.Selection) models.QualitySignals {
	var qs models.QualitySignals
	if doc == nil {
		return qs
	}

	pageText := extract.InnerText(doc.Find(mainSelector).First())

	qs.PhotoCount = photoCount(doc)
	qs.HasDescription = extract.Exists(doc, descriptionSelectors...) || aboutPattern.MatchString(pageText)
	qs.HasServices = extract.Exists(doc, servicesSelectors...) ||
		(strings.Contains(pageText, "Services") && servicePricePattern.MatchString(pageText))
	qs.OwnerResponds = extract.OwnTextContains(doc, ownerResponseNeedle, ownerResponsePrefix)
	qs.NewestReview = newestReview(doc, pageText)
	qs.HasHours = extract.Exists(doc, hoursSelectors...) || hoursPattern.MatchString(pageText)

	return qs
}

// photoCount reads the number from a "N photos" control, or counts photo
// thumbnails when no such control exists.
func photoCount(doc *goquery.Selection) int {
	count := -1
	doc.Find("button[aria-label]").EachWithBreak(func(_ int, b *goquery.Selection) bool {
		label := b.AttrOr("aria-label", "")
		if !strings.Contains(strings.ToLower(label), "photo") {
			return true
		}
		m := photoCountPattern.FindStringSubmatch(label)
		if m == nil {
			return true
		}
		if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
			count = n
			return false
		}
		return true
	})
	if count >= 0 {
		return count
	}
	return doc.Find(photoButtonSelector).Length()
}

func newestReview(doc *goquery.Selection, pageText string) string {
	if ts := strings.TrimSpace(doc.Find(reviewDateSelector).First().Text()); ts != "" {
		return ts
	}
	return reviewAgePattern.FindString(pageText)
}
