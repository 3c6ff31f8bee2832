package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempora-ai/be-timesheets/internal/domain"
)

func costedEntry(id, projectID, developerID string, startDay, minutes int, billable bool) domain.TimeEntry {
	start := time.Date(2024, 3, startDay, 9, 0, 0, 0, time.UTC)
	return domain.TimeEntry{
		ID:              id,
		ProjectID:       projectID,
		ClientID:        "client-1",
		DeveloperID:     developerID,
		StartAt:         start,
		EndAt:           start.Add(time.Duration(minutes) * time.Minute),
		DurationMinutes: minutes,
		Billable:        billable,
		Status:          domain.StatusApproved,
	}
}

func projectRate(projectID string, rate float64) domain.RateCard {
	return domain.RateCard{
		ID:            "rc-" + projectID,
		ProjectID:     strPtr(projectID),
		HourlyRate:    rate,
		Currency:      "EUR",
		EffectiveFrom: date(2024, 1, 1),
		IsActive:      true,
	}
}

func TestCalculateEntryCosts(t *testing.T) {
	at := date(2024, 4, 1)

	t.Run("120 minutes at 150 per hour", func(t *testing.T) {
		entries := []domain.TimeEntry{costedEntry("e1", "proj-1", "dev-1", 5, 120, true)}
		cards := []domain.RateCard{projectRate("proj-1", 150)}

		costs := CalculateEntryCosts(entries, cards, domain.FifteenMinutes, at)
		require.Len(t, costs, 1)
		assert.Equal(t, 120, costs[0].RoundedMinutes)
		assert.Equal(t, 300.00, costs[0].Cost)
		assert.Equal(t, "EUR", costs[0].Currency)
	})

	t.Run("rounding applied before pricing", func(t *testing.T) {
		// 50 min rounds to 45 at 15-minute granularity; 45/60 * 95 = 71.25.
		entries := []domain.TimeEntry{costedEntry("e1", "proj-1", "dev-1", 5, 50, true)}
		cards := []domain.RateCard{projectRate("proj-1", 95)}

		costs := CalculateEntryCosts(entries, cards, domain.FifteenMinutes, at)
		require.Len(t, costs, 1)
		assert.Equal(t, 45, costs[0].RoundedMinutes)
		assert.Equal(t, 71.25, costs[0].Cost)
	})
}

func TestCalculateEntryCostsSkips(t *testing.T) {
	at := date(2024, 4, 1)
	cards := []domain.RateCard{projectRate("proj-1", 150)}

	t.Run("non-billable entries skipped", func(t *testing.T) {
		entries := []domain.TimeEntry{costedEntry("e1", "proj-1", "dev-1", 5, 60, false)}
		assert.Empty(t, CalculateEntryCosts(entries, cards, domain.FifteenMinutes, at))
	})

	t.Run("missing rate silently skipped", func(t *testing.T) {
		entries := []domain.TimeEntry{
			costedEntry("e1", "proj-1", "dev-1", 5, 60, true),
			costedEntry("e2", "proj-unrated", "dev-1", 5, 60, true),
		}
		costs := CalculateEntryCosts(entries, cards, domain.FifteenMinutes, at)
		require.Len(t, costs, 1)
		assert.Equal(t, "e1", costs[0].EntryID)
	})
}

func TestAggregateByProject(t *testing.T) {
	entries := []domain.TimeEntry{
		costedEntry("e1", "proj-1", "dev-1", 5, 120, true),
		costedEntry("e2", "proj-1", "dev-2", 6, 60, false),
		costedEntry("e3", "proj-2", "dev-1", 7, 90, true),
	}
	cards := []domain.RateCard{projectRate("proj-1", 100), projectRate("proj-2", 100)}
	costs := CalculateEntryCosts(entries, cards, domain.FifteenMinutes, date(2024, 4, 1))

	aggs := AggregateByProject(entries, costs)
	require.Len(t, aggs, 2)

	p1 := aggs[0]
	assert.Equal(t, "proj-1", p1.ProjectID)
	assert.Equal(t, 180, p1.TotalMinutes)
	assert.Equal(t, 120, p1.BillableMinutes)
	assert.Equal(t, 60, p1.NonBillableMinutes)
	assert.Equal(t, 200.00, p1.TotalCost)
	assert.Equal(t, 2, p1.EntryCount)

	p2 := aggs[1]
	assert.Equal(t, "proj-2", p2.ProjectID)
	assert.Equal(t, 90, p2.TotalMinutes)
	assert.Equal(t, 150.00, p2.TotalCost)
}

func TestAggregateByDeveloper(t *testing.T) {
	entries := []domain.TimeEntry{
		costedEntry("e1", "proj-1", "dev-1", 5, 120, true),
		costedEntry("e2", "proj-2", "dev-1", 6, 60, true),
		costedEntry("e3", "proj-1", "dev-2", 7, 30, true),
	}
	cards := []domain.RateCard{projectRate("proj-1", 100), projectRate("proj-2", 100)}
	costs := CalculateEntryCosts(entries, cards, domain.FifteenMinutes, date(2024, 4, 1))

	aggs := AggregateByDeveloper(entries, costs)
	require.Len(t, aggs, 2)

	d1 := aggs[0]
	assert.Equal(t, "dev-1", d1.DeveloperID)
	assert.Equal(t, 180, d1.TotalMinutes)
	assert.Equal(t, map[string]int{"proj-1": 120, "proj-2": 60}, d1.MinutesByProject)
}

func TestAggregateByDaySortsAscending(t *testing.T) {
	entries := []domain.TimeEntry{
		costedEntry("e1", "proj-1", "dev-1", 20, 60, true),
		costedEntry("e2", "proj-1", "dev-1", 5, 60, true),
		costedEntry("e3", "proj-1", "dev-1", 5, 30, false),
	}
	costs := CalculateEntryCosts(entries, []domain.RateCard{projectRate("proj-1", 100)},
		domain.FifteenMinutes, date(2024, 4, 1))

	aggs := AggregateByDay(entries, costs)
	require.Len(t, aggs, 2)
	assert.Equal(t, "2024-03-05", aggs[0].Date)
	assert.Equal(t, 90, aggs[0].TotalMinutes)
	assert.Equal(t, "2024-03-20", aggs[1].Date)
}

func TestGenerateExport(t *testing.T) {
	approved := costedEntry("e1", "proj-1", "dev-1", 5, 120, true)
	locked := costedEntry("e2", "proj-1", "dev-1", 10, 60, true)
	locked.Status = domain.StatusLocked
	draft := costedEntry("e3", "proj-1", "dev-1", 12, 60, true)
	draft.Status = domain.StatusDraft
	nonBillable := costedEntry("e4", "proj-1", "dev-1", 15, 30, false)

	entries := []domain.TimeEntry{approved, locked, draft, nonBillable}
	cards := []domain.RateCard{projectRate("proj-1", 100)}

	t.Run("default drops draft and non-billable", func(t *testing.T) {
		export := GenerateExport(entries, cards, ExportOptions{At: date(2024, 4, 1)})
		require.Len(t, export.Entries, 2)
		assert.Equal(t, 180, export.Summary.TotalMinutes)
		assert.Equal(t, 300.00, export.Summary.TotalCost)
		assert.Equal(t, "EUR", export.Summary.Currency)
		assert.Equal(t, approved.StartAt, export.Summary.PeriodStart)
		assert.Equal(t, locked.StartAt, export.Summary.PeriodEnd)
		assert.Len(t, export.ByProject, 1)
		assert.Len(t, export.ByDeveloper, 1)
		assert.Len(t, export.ByDay, 2)
	})

	t.Run("include non-billable", func(t *testing.T) {
		export := GenerateExport(entries, cards, ExportOptions{
			IncludeNonBillable: true,
			At:                 date(2024, 4, 1),
		})
		require.Len(t, export.Entries, 3)
		assert.Equal(t, 210, export.Summary.TotalMinutes)
		assert.Equal(t, 30, export.Summary.NonBillableMinutes)
		assert.Equal(t, 300.00, export.Summary.TotalCost, "non-billable adds minutes, not cost")
	})
}

func TestMapToInvoice(t *testing.T) {
	e1 := costedEntry("e1", "proj-1", "dev-1", 5, 120, true)
	e2 := costedEntry("e2", "proj-2", "dev-1", 20, 60, true)
	e2.EndAt = e2.StartAt.Add(26 * time.Hour) // ends after the last start
	entries := []domain.TimeEntry{e1, e2}

	cards := []domain.RateCard{projectRate("proj-1", 100), projectRate("proj-2", 100)}
	costs := CalculateEntryCosts(entries, cards, domain.FifteenMinutes, date(2024, 4, 1))

	bundle := MapToInvoice(entries, costs, "inv-1", "client-1")
	assert.Equal(t, "inv-1", bundle.InvoiceID)
	assert.Equal(t, "client-1", bundle.ClientID)
	assert.Equal(t, 300.00, bundle.TotalCost)
	assert.Equal(t, []string{"proj-1", "proj-2"}, bundle.ProjectIDs)

	// Both period bounds derive from StartAt: the upper bound is the latest
	// start, not the latest end.
	assert.Equal(t, e1.StartAt, bundle.PeriodStart)
	assert.Equal(t, e2.StartAt, bundle.PeriodEnd)
	assert.True(t, e2.EndAt.After(bundle.PeriodEnd))
}
