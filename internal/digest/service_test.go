package digest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"competitoriq-engine/internal/domain"
	"competitoriq-engine/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	recs []domain.Summary
	err  error
	fn   func() ([]domain.Summary, error)
}

func (f *fakeSource) ListSummaries(ctx context.Context, userID string) ([]domain.Summary, error) {
	if f.fn != nil {
		return f.fn()
	}
	return f.recs, f.err
}

func newTestAggregator(src *fakeSource) *Aggregator {
	return NewAggregator(src, nil, func() string { return "user-1" }, logger.Nop())
}

func TestAggregator_RefreshReplacesWholesale(t *testing.T) {
	src := &fakeSource{recs: []domain.Summary{{Company: "A", Date: "2024-12-10", Summary: []string{"x"}}}}
	agg := newTestAggregator(src)

	require.NoError(t, agg.Refresh(context.Background()))
	require.Len(t, agg.Records(), 1)

	src.recs = []domain.Summary{
		{Company: "B", Date: "2024-12-11", Summary: []string{"y"}},
		{Company: "C", Date: "2024-12-12", Summary: []string{"z"}},
	}
	require.NoError(t, agg.Refresh(context.Background()))

	recs := agg.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "B", recs[0].Company)
}

func TestAggregator_FailedRefreshKeepsPreviousSet(t *testing.T) {
	src := &fakeSource{recs: []domain.Summary{{Company: "A", Date: "2024-12-10", Summary: []string{"x"}}}}
	agg := newTestAggregator(src)
	require.NoError(t, agg.Refresh(context.Background()))

	src.err = errors.New("service unavailable")
	require.Error(t, agg.Refresh(context.Background()))

	assert.Len(t, agg.Records(), 1, "failed fetch must not clobber the record set")
	assert.Equal(t, "service unavailable", agg.Status().LastError)
}

func TestAggregator_SupersededRefreshIsDiscarded(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var calls int32
	src := &fakeSource{}
	src.fn = func() ([]domain.Summary, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			started <- struct{}{}
			<-release
			return []domain.Summary{{Company: "Stale", Date: "2024-12-01", Summary: []string{"x"}}}, nil
		}
		return []domain.Summary{{Company: "Fresh", Date: "2024-12-02", Summary: []string{"y"}}}, nil
	}
	agg := newTestAggregator(src)

	stale := make(chan error, 1)
	go func() { stale <- agg.Refresh(context.Background()) }()
	<-started

	require.NoError(t, agg.Refresh(context.Background()))

	close(release)
	select {
	case err := <-stale:
		assert.NoError(t, err, "a discarded refresh is not an error")
	case <-time.After(2 * time.Second):
		t.Fatal("stale refresh never completed")
	}

	recs := agg.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "Fresh", recs[0].Company, "the stale response must not overwrite the newer set")
}

func TestAggregator_ViewAnnotatesImpactAndCompanies(t *testing.T) {
	src := &fakeSource{recs: []domain.Summary{
		{Company: "A", Date: "2024-12-15", Summary: []string{"a", "b", "c", "d", "e"}},
		{Company: "B", Date: "2024-12-14", Summary: []string{"No Changes Detected"}},
	}}
	agg := newTestAggregator(src)
	require.NoError(t, agg.Refresh(context.Background()))

	v := agg.View(Filters{HideNoChanges: true})
	require.Len(t, v.Groups, 1)
	assert.Equal(t, ImpactHigh, v.Groups[0].Items[0].Impact)
	assert.Equal(t, 1, v.Total)

	// selector still offers companies the filter hid
	assert.Equal(t, []string{"A", "B"}, v.Companies)
}
