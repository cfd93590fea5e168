package tracker

import (
	"context"

	"competitoriq-engine/internal/domain"
	"competitoriq-engine/internal/events"
)

// Preferences load and save independently of the competitor list: separate
// busy flags, separate error surface, last-writer-wins on save.

type PrefsStatus struct {
	Loading   bool   `json:"loading"`
	Saving    bool   `json:"saving"`
	Loaded    bool   `json:"loaded"`
	LastError string `json:"last_error"`
}

type prefsState struct {
	prefs   domain.Preferences
	loaded  bool
	loading bool
	saving  bool
	lastErr string
	token   uint64
}

// LoadPreferences fetches the caller's record; the client applies the
// {daily, true} defaults when the service has none.
func (t *Tracker) LoadPreferences(ctx context.Context) error {
	t.mu.Lock()
	t.prefs.loading = true
	t.prefs.token++
	token := t.prefs.token
	t.mu.Unlock()

	prefs, err := t.be.GetPreferences(ctx, t.userID())

	t.mu.Lock()
	defer t.mu.Unlock()
	if token != t.prefs.token {
		return nil
	}
	t.prefs.loading = false
	if err != nil {
		t.prefs.lastErr = err.Error()
		return err
	}
	t.prefs.lastErr = ""
	t.prefs.prefs = prefs
	t.prefs.loaded = true
	return nil
}

// Preferences returns the current record and whether a load has succeeded.
// Before the first load it reports the defaults.
func (t *Tracker) Preferences() (domain.Preferences, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.prefs.loaded {
		return domain.DefaultPreferences(), false
	}
	return t.prefs.prefs, true
}

func (t *Tracker) PrefsStatus() PrefsStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return PrefsStatus{
		Loading:   t.prefs.loading,
		Saving:    t.prefs.saving,
		Loaded:    t.prefs.loaded,
		LastError: t.prefs.lastErr,
	}
}

// SavePreferences always sends the complete pair; the service record is
// overwritten, not merged.
func (t *Tracker) SavePreferences(ctx context.Context, prefs domain.Preferences) error {
	t.mu.Lock()
	t.prefs.saving = true
	t.mu.Unlock()

	err := t.be.SavePreferences(ctx, t.userID(), prefs)

	t.mu.Lock()
	t.prefs.saving = false
	if err != nil {
		t.prefs.lastErr = err.Error()
		t.mu.Unlock()
		return err
	}
	t.prefs.lastErr = ""
	t.prefs.prefs = prefs
	t.prefs.loaded = true
	t.mu.Unlock()

	t.publish(events.TypePreferencesSaved, prefs)
	return nil
}
