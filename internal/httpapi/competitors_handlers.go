package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"competitoriq-engine/internal/tracker"
)

type CompetitorsHandler struct {
	T *tracker.Tracker
}

type listResponse struct {
	Status      tracker.Status `json:"status"`
	Competitors any            `json:"competitors"`
	JustAdded   string         `json:"just_added,omitempty"`
}

func (h CompetitorsHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		if err := h.T.Refresh(r.Context()); err != nil {
			writeFlowError(w, r, err)
			return
		}
	}
	writeJSON(w, listResponse{
		Status:      h.T.Status(),
		Competitors: h.T.Competitors(),
		JustAdded:   h.T.TakeJustAdded(r.Context()),
	})
}

type scanRequest struct {
	Homepage string `json:"homepage"`
}

func (h CompetitorsHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "invalid JSON: "+err.Error())
		return
	}

	res, err := h.T.Scan(r.Context(), req.Homepage)
	if err != nil {
		// A superseded scan must not read as a successful scan that found
		// nothing; the caller that still matters gets its own response.
		if errors.Is(err, tracker.ErrSuperseded) {
			WriteError(w, r, http.StatusConflict, "superseded", err.Error())
			return
		}
		writeFlowError(w, r, err)
		return
	}
	writeJSON(w, res)
}

type createRequest struct {
	Name        string            `json:"name"`
	Fields      map[string]string `json:"fields"`
	CustomLinks []string          `json:"customLinks"`
}

func (h CompetitorsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "invalid JSON: "+err.Error())
		return
	}

	id, err := h.T.SaveNew(r.Context(), req.Name, req.Fields, req.CustomLinks)
	if err != nil {
		writeFlowError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"id": id})
}

type updateRequest struct {
	Name        string            `json:"name"`
	Homepage    string            `json:"homepage"`
	Fields      map[string]string `json:"fields"`
	CustomLinks []string          `json:"customLinks"`
}

// UpdateByPath handles PATCH /competitors/{id}: open an edit session for
// the competitor, apply the dialog's final state, save.
func (h CompetitorsHandler) UpdateByPath(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/competitors/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, r, http.StatusBadRequest, "bad_id", "invalid competitor id")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "invalid JSON: "+err.Error())
		return
	}

	s, err := h.T.BeginEdit(id)
	if err != nil {
		WriteError(w, r, http.StatusNotFound, "not_found", err.Error())
		return
	}

	s.SetName(req.Name)
	if req.Homepage != "" {
		s.SetHomepage(req.Homepage)
	}
	for k, v := range req.Fields {
		if ferr := s.SetField(k, v); ferr != nil {
			WriteError(w, r, http.StatusBadRequest, "bad_field", ferr.Error())
			return
		}
	}
	if req.CustomLinks != nil {
		s.ReplaceCustomLinks(req.CustomLinks)
	}

	if err := s.Save(r.Context()); err != nil {
		writeFlowError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "id": id})
}

func (h CompetitorsHandler) DeleteByPath(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/competitors/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, r, http.StatusBadRequest, "bad_id", "invalid competitor id")
		return
	}

	h.T.RequestDelete(id)
	if err := h.T.ConfirmDelete(r.Context()); err != nil {
		writeFlowError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "id": id})
}
