// Package crm serves the lead-tracking JSON API over the lead store: list,
// edit contact state, delete, stats, and a one-slot outbox for composed
// outbound texts.
package crm

import (
	"encoding/json"
	"errors"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"

	"lead-scraper/models"
	"lead-scraper/services"
	"lead-scraper/storage"
	"lead-scraper/utils"
)

const dateLayout = "2006-01-02"

// DefaultThreshold is the score at which /api/stats counts a lead as high priority.
const DefaultThreshold = 5

// Handler implements the CRM endpoints.
type Handler struct {
	repo      storage.LeadRepository
	outbox    *Outbox
	insights  *services.InsightService
	policy    *bluemonday.Policy
	template  string
	threshold int
	logger    *utils.Logger
}

func NewHandler(repo storage.LeadRepository, outbox *Outbox, template string, logger *utils.Logger) *Handler {
	return &Handler{
		repo:      repo,
		outbox:    outbox,
		insights:  services.NewInsightService(logger),
		policy:    bluemonday.StrictPolicy(),
		template:  template,
		threshold: DefaultThreshold,
		logger:    logger,
	}
}

// Routes returns the API mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/leads", h.handleLeads)
	mux.HandleFunc("POST /api/update", h.handleUpdate)
	mux.HandleFunc("POST /api/delete", h.handleDelete)
	mux.HandleFunc("GET /api/stats", h.handleStats)
	mux.HandleFunc("POST /api/text", h.handleText)
	mux.HandleFunc("GET /api/pending", h.handlePending)
	mux.HandleFunc("POST /api/pending/claim", h.handleClaim)
	return h.logRequests(mux)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("[crm] %s %s (%s)", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}

// leadView is a Lead as the tracking UI expects it: last_contacted as a
// plain date.
type leadView struct {
	*models.Lead
	LastContacted *string `json:"last_contacted"`
}

func newLeadView(l *models.Lead) leadView {
	v := leadView{Lead: l}
	if l.LastContacted != nil {
		d := l.LastContacted.Format(dateLayout)
		v.LastContacted = &d
	}
	return v
}

func (h *Handler) handleLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.repo.ListByScore(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}
	views := make([]leadView, 0, len(leads))
	for _, l := range leads {
		views = append(views, newLeadView(l))
	}
	writeJSON(w, http.StatusOK, views)
}

type updateRequest struct {
	MapsLink      string `json:"maps_link"`
	ContactStatus string `json:"contact_status"`
	LastContacted string `json:"last_contacted"`
	Notes         string `json:"notes"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MapsLink == "" {
		writeError(w, http.StatusBadRequest, "maps_link is required")
		return
	}

	status, err := models.ParseContactStatus(req.ContactStatus)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u := models.ContactUpdate{MapsLink: req.MapsLink, Status: status}
	if d := strings.TrimSpace(req.LastContacted); d != "" {
		t, err := time.Parse(dateLayout, d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "last_contacted must be YYYY-MM-DD")
			return
		}
		u.LastContacted = &t
	}
	notes := h.sanitize(req.Notes)
	u.Notes = &notes

	err = h.repo.UpdateContact(r.Context(), u)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "lead not found")
		return
	case err != nil:
		h.serverError(w, err)
		return
	}
	h.logger.Info("[crm] %s -> %s", req.MapsLink, status)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// sanitize strips any markup from free-text notes.
func (h *Handler) sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(h.policy.Sanitize(s)))
}

type deleteRequest struct {
	MapsLinks []string `json:"maps_links"`
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.repo.Delete(r.Context(), req.MapsLinks)
	if err != nil {
		h.serverError(w, err)
		return
	}
	if n > 0 {
		h.logger.Info("[crm] deleted %d leads", n)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": n})
}

type statsResponse struct {
	Total        int            `json:"total"`
	HighPriority int            `json:"high_priority"`
	Threshold    int            `json:"threshold"`
	ByStatus     map[string]int `json:"by_status"`
	WithWebsite  int            `json:"with_website"`
	WithPhone    int            `json:"with_phone"`
	AverageScore float64        `json:"average_score"`
	TopReasons   map[string]int `json:"top_reasons"`
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	leads, err := h.repo.ListByScore(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}
	report := h.insights.Generate(leads, h.threshold)

	resp := statsResponse{
		Total:        report.TotalLeads,
		HighPriority: report.HighPriority,
		Threshold:    h.threshold,
		ByStatus:     make(map[string]int, len(models.ContactStatuses)),
		WithWebsite:  report.WithWebsite,
		WithPhone:    report.WithPhone,
		AverageScore: report.AverageScore,
		TopReasons:   report.ReasonCounts,
	}
	for _, s := range models.ContactStatuses {
		resp.ByStatus[string(s)] = report.ByStatus[s]
	}
	writeJSON(w, http.StatusOK, resp)
}

type textRequest struct {
	MapsLink string `json:"maps_link"`
}

func (h *Handler) handleText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lead, err := h.repo.Get(r.Context(), req.MapsLink)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "lead not found")
		return
	case err != nil:
		h.serverError(w, err)
		return
	}
	if lead.Phone == "" {
		writeError(w, http.StatusUnprocessableEntity, "lead has no phone number")
		return
	}

	msg := h.outbox.Put(PendingMessage{
		MapsLink: lead.MapsLink,
		Name:     lead.Name,
		Phone:    lead.Phone,
		Message:  ComposeText(h.template, lead.Name),
	})
	h.logger.Info("[crm] queued text for %s", lead.Name)
	writeJSON(w, http.StatusOK, msg)
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.outbox.Peek()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.outbox.Claim()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *Handler) serverError(w http.ResponseWriter, err error) {
	h.logger.Error("[crm] %v", eris.ToString(err, false))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
