// Package tracker owns the caller's tracked-competitor list and its edit
// lifecycle. The remote store stays authoritative: every mutation is
// followed by a full refetch, never a local patch.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"competitoriq-engine/internal/backend"
	"competitoriq-engine/internal/domain"
	"competitoriq-engine/internal/events"
	"competitoriq-engine/internal/logger"

	"go.uber.org/zap"
)

// ErrSuperseded means a newer invocation of the same flow started before
// this one completed; the stale result was discarded.
var ErrSuperseded = errors.New("superseded by a newer request")

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateError   State = "error"
)

// Backend is the slice of the tracking-service client the tracker uses.
type Backend interface {
	Scan(ctx context.Context, homepage string) (domain.ScanResult, error)
	CreateCompetitor(ctx context.Context, req backend.CreateRequest) (string, error)
	TriggerSnapshot(ctx context.Context, id string) error
	ListCompetitors(ctx context.Context, userID string) ([]domain.Competitor, error)
	UpdateCompetitor(ctx context.Context, req backend.UpdateRequest) error
	DeleteCompetitor(ctx context.Context, id string) error
	GetPreferences(ctx context.Context, userID string) (domain.Preferences, error)
	SavePreferences(ctx context.Context, userID string, prefs domain.Preferences) error
}

// Cache mirrors the last good list and holds the one-shot just-added marker.
type Cache interface {
	ReplaceCompetitors(ctx context.Context, comps []domain.Competitor) error
	LoadCompetitors(ctx context.Context) ([]domain.Competitor, error)
	SetJustAdded(ctx context.Context, name string) error
	TakeJustAdded(ctx context.Context) (string, error)
}

type Status struct {
	State         State  `json:"state"`
	LastError     string `json:"last_error"`
	Loading       bool   `json:"loading"`
	Saving        bool   `json:"saving"`
	Deleting      bool   `json:"deleting"`
	Scanning      bool   `json:"scanning"`
	HasScan       bool   `json:"has_scan"`
	PendingDelete string `json:"pending_delete"`
}

type Tracker struct {
	be     Backend
	cache  Cache // optional
	hub    *events.Hub
	userID func() string
	log    logger.Logger

	mu          sync.Mutex
	state       State
	competitors []domain.Competitor
	lastErr     string

	loading   bool
	listToken uint64

	scanning     bool
	scanToken    uint64
	scanResult   *domain.ScanResult
	scanHomepage string

	saving        bool
	deleting      bool
	pendingDelete string

	prefs prefsState
}

func New(be Backend, cache Cache, hub *events.Hub, userID func() string, log logger.Logger) *Tracker {
	return &Tracker{
		be:     be,
		cache:  cache,
		hub:    hub,
		userID: userID,
		log:    log,
		state:  StateIdle,
	}
}

func (t *Tracker) publish(typ string, data any) {
	if t.hub != nil {
		t.hub.PublishEvent("", typ, data)
	}
}

// Restore seeds the list from the offline cache so the dashboard has
// something to paint before the first refetch lands.
func (t *Tracker) Restore(ctx context.Context) {
	if t.cache == nil {
		return
	}
	comps, err := t.cache.LoadCompetitors(ctx)
	if err != nil {
		t.log.Warn("competitor cache restore failed", zap.Error(err))
		return
	}
	t.mu.Lock()
	if t.state == StateIdle && len(comps) > 0 {
		t.competitors = comps
		t.state = StateLoaded
	}
	t.mu.Unlock()
}

// Refresh replaces the list wholesale from the remote store. A response
// that lost the race to a newer refresh is discarded.
func (t *Tracker) Refresh(ctx context.Context) error {
	t.mu.Lock()
	t.loading = true
	t.state = StateLoading
	t.listToken++
	token := t.listToken
	t.mu.Unlock()

	comps, err := t.be.ListCompetitors(ctx, t.userID())

	t.mu.Lock()
	if token != t.listToken {
		t.mu.Unlock()
		return nil
	}
	t.loading = false
	if err != nil {
		t.state = StateError
		t.lastErr = err.Error()
		t.mu.Unlock()
		return err
	}
	t.state = StateLoaded
	t.lastErr = ""
	t.competitors = comps
	// Mirrored under the same lock as the token check, so a newer fetch
	// cannot commit between the check and the cache write.
	if t.cache != nil {
		if cerr := t.cache.ReplaceCompetitors(ctx, comps); cerr != nil {
			t.log.Warn("competitor cache write failed", zap.Error(cerr))
		}
	}
	t.mu.Unlock()
	return nil
}

// Competitors returns deep copies; callers never alias the cached list.
func (t *Tracker) Competitors() []domain.Competitor {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Competitor, 0, len(t.competitors))
	for _, c := range t.competitors {
		out = append(out, c.Clone())
	}
	return out
}

func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		State:         t.state,
		LastError:     t.lastErr,
		Loading:       t.loading,
		Saving:        t.saving,
		Deleting:      t.deleting,
		Scanning:      t.scanning,
		HasScan:       t.scanResult != nil,
		PendingDelete: t.pendingDelete,
	}
}

// Scan runs phase one of the create flow. On success the result is held
// for the confirmation form; on failure the previous result survives.
func (t *Tracker) Scan(ctx context.Context, homepage string) (domain.ScanResult, error) {
	t.mu.Lock()
	t.scanning = true
	t.scanToken++
	token := t.scanToken
	t.mu.Unlock()

	res, err := t.be.Scan(ctx, homepage)

	t.mu.Lock()
	defer t.mu.Unlock()
	if token != t.scanToken {
		// A newer scan superseded this one; drop the result.
		return domain.ScanResult{}, ErrSuperseded
	}
	t.scanning = false
	if err != nil {
		return domain.ScanResult{}, err
	}
	t.scanResult = &res
	t.scanHomepage = homepage
	return res, nil
}

// SaveNew runs phase two: create the competitor from the held scan result,
// kick off its first snapshot in the background, and reload the list.
func (t *Tracker) SaveNew(ctx context.Context, name string, fields map[string]string, customLinks []string) (string, error) {
	t.mu.Lock()
	if t.scanResult == nil {
		t.mu.Unlock()
		return "", &backend.ValidationError{Msg: "scan the homepage before saving"}
	}
	scan := *t.scanResult
	homepage := t.scanHomepage
	t.saving = true
	t.mu.Unlock()

	id, err := t.be.CreateCompetitor(ctx, backend.CreateRequest{
		UserID:      t.userID(),
		Name:        name,
		Homepage:    homepage,
		Fields:      fields,
		CustomLinks: customLinks,
		Snapshot:    scan.Raw,
	})

	t.mu.Lock()
	t.saving = false
	if err != nil {
		t.mu.Unlock()
		return "", err
	}
	t.scanResult = nil
	t.scanHomepage = ""
	t.mu.Unlock()

	// First snapshot is fire-and-forget: its failure never rolls back or
	// blocks the create.
	go func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if serr := t.be.TriggerSnapshot(sctx, id); serr != nil {
			t.log.Debug("snapshot trigger failed", zap.String("id", id), zap.Error(serr))
		}
	}()

	if t.cache != nil {
		if cerr := t.cache.SetJustAdded(ctx, name); cerr != nil {
			t.log.Warn("just-added marker write failed", zap.Error(cerr))
		}
	}
	t.publish(events.TypeCompetitorCreated, map[string]any{"id": id, "name": name})

	if rerr := t.Refresh(ctx); rerr != nil {
		// The create itself succeeded; the stale list shows up in Status.
		t.log.Warn("list refetch after create failed", zap.Error(rerr))
	}
	return id, nil
}

// TakeJustAdded returns the one-shot marker set by the last create, or "".
func (t *Tracker) TakeJustAdded(ctx context.Context) string {
	if t.cache == nil {
		return ""
	}
	name, err := t.cache.TakeJustAdded(ctx)
	if err != nil {
		t.log.Warn("just-added marker read failed", zap.Error(err))
		return ""
	}
	return name
}

// RequestDelete marks a competitor as pending delete. No remote call is
// made until ConfirmDelete; a second request replaces the first.
func (t *Tracker) RequestDelete(id string) {
	t.mu.Lock()
	t.pendingDelete = id
	t.mu.Unlock()
}

func (t *Tracker) CancelDelete() {
	t.mu.Lock()
	t.pendingDelete = ""
	t.mu.Unlock()
}

// ConfirmDelete sends the delete for the pending competitor, then reloads
// the list. Failure clears the marker and leaves the list untouched.
func (t *Tracker) ConfirmDelete(ctx context.Context) error {
	t.mu.Lock()
	id := t.pendingDelete
	if id == "" {
		t.mu.Unlock()
		return &backend.ValidationError{Msg: "no competitor pending delete"}
	}
	t.deleting = true
	t.mu.Unlock()

	err := t.be.DeleteCompetitor(ctx, id)

	t.mu.Lock()
	t.deleting = false
	t.pendingDelete = ""
	t.mu.Unlock()

	if err != nil {
		return err
	}

	t.publish(events.TypeCompetitorDeleted, map[string]any{"id": id})
	if rerr := t.Refresh(ctx); rerr != nil {
		t.log.Warn("list refetch after delete failed", zap.Error(rerr))
	}
	return nil
}
