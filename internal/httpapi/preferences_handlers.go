package httpapi

import (
	"encoding/json"
	"net/http"

	"competitoriq-engine/internal/domain"
	"competitoriq-engine/internal/tracker"
)

type PreferencesHandler struct {
	T *tracker.Tracker
}

type prefsResponse struct {
	Preferences domain.Preferences  `json:"preferences"`
	Status      tracker.PrefsStatus `json:"status"`
}

// Get loads the record on first access (dashboard mount), then serves the
// held copy.
func (h PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, loaded := h.T.Preferences(); !loaded {
		if err := h.T.LoadPreferences(r.Context()); err != nil {
			writeFlowError(w, r, err)
			return
		}
	}
	prefs, _ := h.T.Preferences()
	writeJSON(w, prefsResponse{Preferences: prefs, Status: h.T.PrefsStatus()})
}

func (h PreferencesHandler) Put(w http.ResponseWriter, r *http.Request) {
	var prefs domain.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "invalid JSON: "+err.Error())
		return
	}

	if err := h.T.SavePreferences(r.Context(), prefs); err != nil {
		writeFlowError(w, r, err)
		return
	}
	writeJSON(w, prefsResponse{Preferences: prefs, Status: h.T.PrefsStatus()})
}
