package digest

import (
	"testing"

	"competitoriq-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyImpact(t *testing.T) {
	tests := []struct {
		name    string
		summary []string
		want    Impact
	}{
		{name: "empty", summary: nil, want: ImpactLow},
		{name: "one item", summary: []string{"a"}, want: ImpactLow},
		{name: "boundary two items", summary: []string{"a", "b"}, want: ImpactLow},
		{name: "three items", summary: []string{"a", "b", "c"}, want: ImpactMedium},
		{name: "boundary four items", summary: []string{"a", "b", "c", "d"}, want: ImpactMedium},
		{name: "five items", summary: []string{"a", "b", "c", "d", "e"}, want: ImpactHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyImpact(tt.summary))
		})
	}
}

func TestGroupByDate(t *testing.T) {
	records := []domain.Summary{
		{Company: "A", Date: "2024-12-10", Summary: []string{"x"}},
		{Company: "B", Date: "2024-12-15", Summary: []string{"y"}},
		{Company: "C", Date: "", Summary: []string{"undated"}},
		{Company: "D", Date: "2024-12-10", Summary: []string{"z"}},
	}

	groups := GroupByDate(records)
	require.Len(t, groups, 2)

	// newest bucket first
	assert.Equal(t, "2024-12-15", groups[0].Date)
	assert.Equal(t, "2024-12-10", groups[1].Date)

	// stable within a bucket, undated dropped
	require.Len(t, groups[1].Items, 2)
	assert.Equal(t, "A", groups[1].Items[0].Company)
	assert.Equal(t, "D", groups[1].Items[1].Company)

	total := 0
	for _, g := range groups {
		total += len(g.Items)
	}
	assert.Equal(t, 3, total, "every dated record appears exactly once")
}

func TestGroupByDate_TimestampDates(t *testing.T) {
	records := []domain.Summary{
		{Company: "A", Date: "2024-12-15T09:30:00Z", Summary: []string{"x"}},
		{Company: "B", Date: "2024-12-15T18:00:00Z", Summary: []string{"y"}},
	}

	groups := GroupByDate(records)
	require.Len(t, groups, 1)
	assert.Equal(t, "2024-12-15", groups[0].Date)
	assert.Len(t, groups[0].Items, 2)
}

func TestGroupByDate_SingleHighImpactBucket(t *testing.T) {
	records := []domain.Summary{
		{Company: "A", Date: "2024-12-15", Summary: []string{"x", "y", "z", "w", "v"}},
	}

	groups := GroupByDate(records)
	require.Len(t, groups, 1)
	assert.Equal(t, "2024-12-15", groups[0].Date)
	assert.Equal(t, ImpactHigh, ClassifyImpact(groups[0].Items[0].Summary))
}

func TestFilter_EmptyCompanySelectionMeansNoFilter(t *testing.T) {
	records := []domain.Summary{
		{Company: "A", Date: "2024-12-10", Summary: []string{"x"}},
		{Company: "B", Date: "2024-12-11", Summary: []string{"y"}},
	}

	none := Filter(records, Filters{})
	empty := Filter(records, Filters{Companies: []string{}})
	assert.Equal(t, none, empty)
	assert.Len(t, empty, 2)
}

func TestFilter_CompanySelection(t *testing.T) {
	records := []domain.Summary{
		{Company: "A", Date: "2024-12-10", Summary: []string{"x"}},
		{Company: "B", Date: "2024-12-11", Summary: []string{"y"}},
		{Company: "A", Date: "2024-12-12", Summary: []string{"z"}},
	}

	got := Filter(records, Filters{Companies: []string{"A"}})
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Company)
	assert.Equal(t, "A", got[1].Company)
}

func TestFilter_DateRange(t *testing.T) {
	records := []domain.Summary{
		{Company: "A", Date: "2024-12-09", Summary: []string{"x"}},
		{Company: "B", Date: "2024-12-10", Summary: []string{"y"}},
		{Company: "C", Date: "2024-12-12", Summary: []string{"z"}},
		{Company: "D", Date: "", Summary: []string{"undated"}},
	}

	// inclusive on both ends; undated records never pass an active range
	got := Filter(records, Filters{From: "2024-12-10", To: "2024-12-12"})
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Company)
	assert.Equal(t, "C", got[1].Company)

	// a half-open range is not applied
	got = Filter(records, Filters{From: "2024-12-10"})
	assert.Len(t, got, 4)
}

func TestFilter_HideNoChanges(t *testing.T) {
	records := []domain.Summary{
		{Company: "A", Date: "2024-12-10", Summary: []string{"No Changes Detected"}},
		{Company: "B", Date: "2024-12-10", Summary: []string{"No Changes Detected", "New pricing page"}},
		{Company: "C", Date: "2024-12-10", Summary: []string{}},
		{Company: "D", Date: "2024-12-10", Summary: []string{""}},
		{Company: "E", Date: "2024-12-10", Summary: []string{"Redesigned homepage"}},
	}

	got := Filter(records, Filters{HideNoChanges: true})
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Company)
	assert.Equal(t, "E", got[1].Company)
}

func TestCompanies(t *testing.T) {
	records := []domain.Summary{
		{Company: "Globex"},
		{Company: "Acme"},
		{Company: "Globex"},
		{Company: "Initech"},
	}

	assert.Equal(t, []string{"Acme", "Globex", "Initech"}, Companies(records))
}
