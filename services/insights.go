package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"lead-scraper/models"
	"lead-scraper/utils"
)

const topProspectCount = 5

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarises leads. threshold is the score at which a lead counts
// as high priority.
func (s *InsightService) Generate(leads []*models.Lead, threshold int) *models.LeadReport {
	report := &models.LeadReport{
		ByStatus:     make(map[models.ContactStatus]int),
		ReasonCounts: make(map[string]int),
	}

	if len(leads) == 0 {
		return report
	}

	report.TotalLeads = len(leads)
	report.MinScore = leads[0].LeadScore
	report.MaxScore = leads[0].LeadScore

	var total int
	for _, l := range leads {
		total += l.LeadScore
		if l.LeadScore < report.MinScore {
			report.MinScore = l.LeadScore
		}
		if l.LeadScore > report.MaxScore {
			report.MaxScore = l.LeadScore
		}
		if l.LeadScore >= threshold {
			report.HighPriority++
		}
		if l.Website != "" {
			report.WithWebsite++
		}
		if l.Phone != "" {
			report.WithPhone++
		}

		status := l.ContactStatus
		if status == "" {
			status = models.StatusNew
		}
		report.ByStatus[status]++

		for _, reason := range l.Reasons() {
			report.ReasonCounts[reasonKey(reason)]++
		}
	}
	report.AverageScore = round2(float64(total) / float64(len(leads)))

	ranked := make([]*models.Lead, len(leads))
	copy(ranked, leads)
	SortByScore(ranked)
	if len(ranked) > topProspectCount {
		ranked = ranked[:topProspectCount]
	}
	report.TopProspects = ranked

	s.logger.Debug("[insights] %d leads, %d high priority, average score %.2f",
		report.TotalLeads, report.HighPriority, report.AverageScore)
	return report
}

// reasonKey groups "rating 3.5" and "rating 2.0" under one heading.
func reasonKey(reason string) string {
	if strings.HasPrefix(reason, "rating ") {
		return "rating <4.0"
	}
	return reason
}

func (s *InsightService) Print(w io.Writer, r *models.LeadReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 LEAD INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total leads            : \033[1m%d\033[0m\n", r.TotalLeads)
	fmt.Fprintf(w, "  High priority          : \033[1m%d\033[0m\n", r.HighPriority)
	fmt.Fprintf(w, "  With website           : \033[1m%d\033[0m\n", r.WithWebsite)
	fmt.Fprintf(w, "  With phone             : \033[1m%d\033[0m\n", r.WithPhone)
	fmt.Fprintln(w)

	// Score stats
	fmt.Fprintf(w, "\033[1;33m  Lead Score (higher = more neglected)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.TotalLeads > 0 {
		fmt.Fprintf(w, "  Average score : \033[1;32m%.2f\033[0m\n", r.AverageScore)
		fmt.Fprintf(w, "  Minimum score : \033[1;32m%d\033[0m\n", r.MinScore)
		fmt.Fprintf(w, "  Maximum score : \033[1;32m%d\033[0m\n", r.MaxScore)
	} else {
		fmt.Fprintf(w, "  No leads scored\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Top %d Prospects\033[0m\n", topProspectCount)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopProspects) == 0 {
		fmt.Fprintf(w, "  No prospects found\n")
	} else {
		for i, l := range r.TopProspects {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;31m%2d\033[0m\n",
				i+1, truncate(l.Name, 38), l.LeadScore)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Most Common Gaps\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ReasonCounts) == 0 {
		fmt.Fprintf(w, "  No gaps recorded\n")
	} else {
		for _, rc := range sortedCounts(r.ReasonCounts) {
			bar := strings.Repeat("█", rc.count)
			fmt.Fprintf(w, "  %-22s %s (%d)\n", truncate(rc.key, 22), bar, rc.count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Contact Status\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, status := range models.ContactStatuses {
		fmt.Fprintf(w, "  %-16s %d\n", status, r.ByStatus[status])
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

// RunSummary describes where one scrape run left its results.
type RunSummary struct {
	Query         string
	JSONPath      string
	CSVPath       string
	StoreLocation string
	Projection    Projection
}

// PrintRunSummary prints the end-of-run banner followed by one line per
// output lead.
func (s *InsightService) PrintRunSummary(w io.Writer, sum RunSummary) {
	sep := strings.Repeat("=", 60)
	p := sum.Projection

	fmt.Fprintf(w, "\n%s\n", sep)
	fmt.Fprintf(w, "  %d high-priority leads out of %d total (saved to DB)\n", p.HighPriority, p.Total)
	fmt.Fprintf(w, "  Query: %s\n", sum.Query)
	fmt.Fprintf(w, "  JSON:  %s\n", sum.JSONPath)
	fmt.Fprintf(w, "  CSV:   %s\n", sum.CSVPath)
	fmt.Fprintf(w, "  DB:    %s\n", sum.StoreLocation)
	fmt.Fprintf(w, "%s\n\n", sep)

	for _, l := range p.Leads {
		phone := orDash(l.Phone)
		website := orDash(l.Website)
		fmt.Fprintf(w, "  [SCORE %2d] %-35s | %-16s | %s\n",
			l.LeadScore, truncate(l.Name, 35), phone, truncate(website, 33))
		if l.ScoreReasons != "" {
			fmt.Fprintf(w, "           → %s\n", l.ScoreReasons)
		}
	}
}

type keyCount struct {
	key   string
	count int
}

// sortedCounts orders counts descending, then by key.
func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, v := range m {
		out = append(out, keyCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
