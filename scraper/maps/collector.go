package maps

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"lead-scraper/models"
	"lead-scraper/scraper/extract"
	"lead-scraper/utils"
)

const (
	mapsBaseURL   = "https://www.google.com"
	searchBaseURL = mapsBaseURL + "/maps/search/"

	// resultAnchorSelector matches one anchor per listing card in the results feed.
	resultAnchorSelector = `a[href*="/maps/place/"]`

	maxCategoryLen = 60
)

// feedSelectors locate the scrollable results panel, most specific first.
var feedSelectors = []string{
	`div[role="feed"]`,
	`div.m6QErb.DxyBCb.kA9KIf.dS8AEf`,
	`div.m6QErb`,
}

var (
	ratingPattern        = regexp.MustCompile(`\b([1-5]\.\d)\b`)
	parenCountPattern    = regexp.MustCompile(`\(([0-9,]+)\)`)
	reviewCountPattern   = regexp.MustCompile(`(?i)(\d[\d,]*)\s*review`)
	categoryRejectPrefix = regexp.MustCompile(`^[0-9(.$€£]`)
)

// SearchURL builds the results URL for a free-text query, forcing English.
func SearchURL(query string) string {
	return searchBaseURL + url.QueryEscape(query) + "?hl=en"
}

// CollectStubs turns the result anchors in root into stub listings, in
// document order, deduplicated by display name and capped at max.
func CollectStubs(root *goquery.Selection, max int) []models.StubListing {
	stubs := make([]models.StubListing, 0)
	if root == nil || max <= 0 {
		return stubs
	}

	base, _ := url.Parse(mapsBaseURL)
	seen := utils.NewKeySet()

	root.Find(resultAnchorSelector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		name := strings.TrimSpace(a.AttrOr("aria-label", ""))
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if name == "" || href == "" {
			return true
		}
		if !seen.Add(name) {
			return true
		}

		link := href
		if ref, err := url.Parse(href); err == nil {
			link = base.ResolveReference(ref).String()
		}

		block := extract.InnerText(a.Parent())
		stubs = append(stubs, models.StubListing{
			Name:        name,
			Rating:      ParseRating(block),
			ReviewCount: ParseReviewCount(block),
			Category:    GuessCategory(block, name),
			MapsLink:    link,
		})
		return len(stubs) < max
	})

	return stubs
}

// ParseRating returns the first 1.0-5.0 decimal in a card's text, or nil.
func ParseRating(text string) *float64 {
	m := ratingPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v < 1.0 || v > 5.0 {
		return nil
	}
	return &v
}

// ParseReviewCount reads "(1,234)" or "1,234 reviews" from a card's text.
func ParseReviewCount(text string) *int {
	for _, re := range []*regexp.Regexp{parenCountPattern, reviewCountPattern} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		digits := strings.ReplaceAll(m[1], ",", "")
		if n, err := strconv.Atoi(digits); err == nil {
			return &n
		}
	}
	return nil
}

// GuessCategory returns the first line of a card that reads like a business
// category, or "".
func GuessCategory(text, name string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "" || line == name:
		case categoryRejectPrefix.MatchString(line):
		case strings.Contains(strings.ToLower(line), "review"):
		case utf8.RuneCountInString(line) >= maxCategoryLen:
		case strings.HasPrefix(line, "Open"), strings.HasPrefix(line, "Closed"):
		default:
			return line
		}
	}
	return ""
}
