package digest

import (
	"context"
	"sync"
	"time"

	"competitoriq-engine/internal/domain"
	"competitoriq-engine/internal/logger"

	"go.uber.org/zap"
)

// Source is the slice of the tracking-service client the aggregator needs.
type Source interface {
	ListSummaries(ctx context.Context, userID string) ([]domain.Summary, error)
}

// Cache mirrors the last good fetch so the dashboard can render offline.
type Cache interface {
	ReplaceSummaries(ctx context.Context, recs []domain.Summary) error
	LoadSummaries(ctx context.Context) ([]domain.Summary, error)
}

type Status struct {
	Loading   bool   `json:"loading"`
	LastError string `json:"last_error"`
	LastOkAt  string `json:"last_ok_at"`
	Count     int    `json:"count"`
}

// Aggregator owns the in-memory record set. Each successful refresh replaces
// it wholesale; a failed refresh leaves the previous set untouched.
type Aggregator struct {
	src    Source
	cache  Cache // optional
	userID func() string
	log    logger.Logger

	mu      sync.Mutex
	records []domain.Summary
	loading bool
	lastErr string
	lastOk  string
	token   uint64
}

func NewAggregator(src Source, cache Cache, userID func() string, log logger.Logger) *Aggregator {
	return &Aggregator{src: src, cache: cache, userID: userID, log: log}
}

// Restore seeds the record set from the offline cache. Best effort; an
// empty or failed cache read just leaves the set empty.
func (a *Aggregator) Restore(ctx context.Context) {
	if a.cache == nil {
		return
	}
	recs, err := a.cache.LoadSummaries(ctx)
	if err != nil {
		a.log.Warn("summary cache restore failed", zap.Error(err))
		return
	}
	a.mu.Lock()
	if len(a.records) == 0 {
		a.records = recs
	}
	a.mu.Unlock()
}

// Refresh fetches the caller's summaries. A response that lost the race to
// a newer refresh is discarded.
func (a *Aggregator) Refresh(ctx context.Context) error {
	a.mu.Lock()
	a.loading = true
	a.token++
	token := a.token
	a.mu.Unlock()

	recs, err := a.src.ListSummaries(ctx, a.userID())

	a.mu.Lock()
	if token != a.token {
		a.mu.Unlock()
		return nil
	}
	a.loading = false
	if err != nil {
		a.lastErr = err.Error()
		a.mu.Unlock()
		return err
	}
	a.lastErr = ""
	a.lastOk = time.Now().UTC().Format(time.RFC3339)
	a.records = recs
	// Mirrored under the same lock as the token check, so a newer fetch
	// cannot commit between the check and the cache write.
	if a.cache != nil {
		if cerr := a.cache.ReplaceSummaries(ctx, recs); cerr != nil {
			a.log.Warn("summary cache write failed", zap.Error(cerr))
		}
	}
	a.mu.Unlock()
	return nil
}

func (a *Aggregator) Records() []domain.Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Summary(nil), a.records...)
}

func (a *Aggregator) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Status{Loading: a.loading, LastError: a.lastErr, LastOkAt: a.lastOk, Count: len(a.records)}
}

type Item struct {
	domain.Summary
	Impact Impact `json:"impact"`
}

type Group struct {
	Date  string `json:"date"`
	Items []Item `json:"items"`
}

type View struct {
	Groups []Group `json:"groups"`
	// Companies is derived from the full record set, so the selector keeps
	// offering names the active filter has hidden.
	Companies []string `json:"companies"`
	Total     int      `json:"total"`
}

// View filters, groups and impact-annotates the current record set.
func (a *Aggregator) View(f Filters) View {
	records := a.Records()

	filtered := Filter(records, f)
	grouped := GroupByDate(filtered)

	groups := make([]Group, 0, len(grouped))
	for _, g := range grouped {
		items := make([]Item, 0, len(g.Items))
		for _, s := range g.Items {
			items = append(items, Item{Summary: s, Impact: ClassifyImpact(s.Summary)})
		}
		groups = append(groups, Group{Date: g.Date, Items: items})
	}

	return View{
		Groups:    groups,
		Companies: Companies(records),
		Total:     len(filtered),
	}
}
