package services

import (
	"regexp"
	"strconv"
	"strings"

	"lead-scraper/models"
)

// Score weights. A higher total means a more neglected listing, which is a
// better sales prospect.
const (
	pointsFewReviews    = 3
	pointsNoOwnerReply  = 2
	pointsFewPhotos     = 2
	pointsLowRating     = 2
	pointsNoDescription = 1
	pointsNoServices    = 1
	pointsStaleReviews  = 2
	pointsNoWebsite     = 1

	fewReviewsBelow = 10
	fewPhotosBelow  = 5
	lowRatingBelow  = 4.0
	staleMonthsFrom = 6
)

var monthsAgoPattern = regexp.MustCompile(`(\d+)\s*month`)

// Score computes the lead score and its ordered reasons. It reads only the
// scraped attributes and quality signals of lead and has no side effects.
func Score(lead *models.Lead) (int, []string) {
	score := 0
	reasons := make([]string, 0, 8)
	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	reviews := 0
	if lead.ReviewCount != nil {
		reviews = *lead.ReviewCount
	}
	if reviews < fewReviewsBelow {
		add(pointsFewReviews, "<10 reviews")
	}
	if !lead.OwnerResponds {
		add(pointsNoOwnerReply, "no owner responses")
	}
	if lead.PhotoCount < fewPhotosBelow {
		add(pointsFewPhotos, "<5 photos")
	}
	if lead.Rating != nil && *lead.Rating < lowRatingBelow {
		add(pointsLowRating, "rating "+formatRating(*lead.Rating))
	}
	if !lead.HasDescription {
		add(pointsNoDescription, "no description")
	}
	if !lead.HasServices {
		add(pointsNoServices, "no services listed")
	}
	if IsStale(lead.NewestReview) {
		add(pointsStaleReviews, "no recent reviews")
	}
	if strings.TrimSpace(lead.Website) == "" {
		add(pointsNoWebsite, "no website")
	}

	return score, reasons
}

// ApplyScore scores every lead in place.
func ApplyScore(leads []*models.Lead) {
	for _, l := range leads {
		score, reasons := Score(l)
		l.LeadScore = score
		l.ScoreReasons = strings.Join(reasons, models.ReasonSeparator)
	}
}

// IsStale reports whether the newest-review text means the listing has had
// no review in roughly six months: no text at all, anything measured in
// years, or six or more months.
func IsStale(newestReview string) bool {
	text := strings.ToLower(strings.TrimSpace(newestReview))
	if text == "" {
		return true
	}
	if strings.Contains(text, "year") {
		return true
	}
	if m := monthsAgoPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= staleMonthsFrom {
			return true
		}
	}
	return false
}

// formatRating renders a rating with at least one decimal place: 3 -> "3.0",
// 3.5 -> "3.5".
func formatRating(r float64) string {
	s := strconv.FormatFloat(r, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
