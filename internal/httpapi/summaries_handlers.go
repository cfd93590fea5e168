package httpapi

import (
	"net/http"
	"strings"

	"competitoriq-engine/internal/digest"
	"competitoriq-engine/internal/events"
)

type SummariesHandler struct {
	A   *digest.Aggregator
	Hub *events.Hub
}

type summariesResponse struct {
	Status digest.Status `json:"status"`
	View   digest.View   `json:"view"`
}

// View serves the grouped, impact-annotated summaries. Filters arrive as
// query params: from/to (YYYY-MM-DD), companies (comma separated),
// hideNoChanges.
func (h SummariesHandler) View(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f digest.Filters
	f.From = q.Get("from")
	f.To = q.Get("to")
	f.HideNoChanges = q.Get("hideNoChanges") == "true"
	if cs := q.Get("companies"); cs != "" {
		for _, c := range strings.Split(cs, ",") {
			if c = strings.TrimSpace(c); c != "" {
				f.Companies = append(f.Companies, c)
			}
		}
	}

	writeJSON(w, summariesResponse{
		Status: h.A.Status(),
		View:   h.A.View(f),
	})
}

func (h SummariesHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.A.Refresh(r.Context()); err != nil {
		writeFlowError(w, r, err)
		return
	}
	st := h.A.Status()
	h.Hub.PublishEvent(RequestIDFrom(r.Context()), events.TypeSummariesRefresh, map[string]any{"count": st.Count})
	writeJSON(w, st)
}
