package finance

import (
	"math"
	"sort"
	"time"

	"github.com/tempora-ai/be-timesheets/internal/domain"
	"github.com/tempora-ai/be-timesheets/internal/policy"
)

// EntryCost is the costed view of one billable entry.
type EntryCost struct {
	EntryID        string  `json:"entryId"`
	DeveloperID    string  `json:"developerId"`
	ProjectID      string  `json:"projectId"`
	Minutes        int     `json:"minutes"`
	RoundedMinutes int     `json:"roundedMinutes"`
	HourlyRate     float64 `json:"hourlyRate"`
	Currency       string  `json:"currency"`
	Cost           float64 `json:"cost"`
}

// roundCents rounds to 2 decimals, half-up at the cents level.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// CalculateEntryCosts costs the billable entries. Durations are rounded via
// the policy interval before pricing. Entries with no resolvable rate are
// skipped, not erred.
func CalculateEntryCosts(entries []domain.TimeEntry, cards []domain.RateCard, interval domain.RoundingInterval, at time.Time) []EntryCost {
	var costs []EntryCost
	for _, entry := range entries {
		if !entry.Billable {
			continue
		}
		card := ResolveEffectiveRate(entry, cards, at)
		if card == nil {
			continue
		}

		rounded := policy.RoundDuration(entry.DurationMinutes, interval)
		costs = append(costs, EntryCost{
			EntryID:        entry.ID,
			DeveloperID:    entry.DeveloperID,
			ProjectID:      entry.ProjectID,
			Minutes:        entry.DurationMinutes,
			RoundedMinutes: rounded,
			HourlyRate:     card.HourlyRate,
			Currency:       card.Currency,
			Cost:           roundCents(float64(rounded) / 60 * card.HourlyRate),
		})
	}
	return costs
}

// ProjectAggregate sums entries for one project.
type ProjectAggregate struct {
	ProjectID          string  `json:"projectId"`
	TotalMinutes       int     `json:"totalMinutes"`
	BillableMinutes    int     `json:"billableMinutes"`
	NonBillableMinutes int     `json:"nonBillableMinutes"`
	TotalCost          float64 `json:"totalCost"`
	EntryCount         int     `json:"entryCount"`
}

// DeveloperAggregate sums entries for one developer, with a per-project
// minutes breakdown.
type DeveloperAggregate struct {
	DeveloperID        string         `json:"developerId"`
	TotalMinutes       int            `json:"totalMinutes"`
	BillableMinutes    int            `json:"billableMinutes"`
	NonBillableMinutes int            `json:"nonBillableMinutes"`
	TotalCost          float64        `json:"totalCost"`
	EntryCount         int            `json:"entryCount"`
	MinutesByProject   map[string]int `json:"minutesByProject"`
}

// DayAggregate sums entries for one UTC calendar day.
type DayAggregate struct {
	Date               string  `json:"date"` // YYYY-MM-DD
	TotalMinutes       int     `json:"totalMinutes"`
	BillableMinutes    int     `json:"billableMinutes"`
	NonBillableMinutes int     `json:"nonBillableMinutes"`
	TotalCost          float64 `json:"totalCost"`
	EntryCount         int     `json:"entryCount"`
}

func costLookup(costs []EntryCost) map[string]EntryCost {
	byID := make(map[string]EntryCost, len(costs))
	for _, c := range costs {
		byID[c.EntryID] = c
	}
	return byID
}

// AggregateByProject groups entries by project. Minutes are summed for every
// entry; cost only for billable entries with a resolved cost.
func AggregateByProject(entries []domain.TimeEntry, costs []EntryCost) []ProjectAggregate {
	byID := costLookup(costs)
	byProject := make(map[string]*ProjectAggregate)
	var order []string

	for _, entry := range entries {
		agg, ok := byProject[entry.ProjectID]
		if !ok {
			agg = &ProjectAggregate{ProjectID: entry.ProjectID}
			byProject[entry.ProjectID] = agg
			order = append(order, entry.ProjectID)
		}
		accumulate(entry, byID, &agg.TotalMinutes, &agg.BillableMinutes, &agg.NonBillableMinutes, &agg.TotalCost, &agg.EntryCount)
	}

	out := make([]ProjectAggregate, 0, len(order))
	for _, id := range order {
		out = append(out, *byProject[id])
	}
	return out
}

// AggregateByDeveloper groups entries by developer.
func AggregateByDeveloper(entries []domain.TimeEntry, costs []EntryCost) []DeveloperAggregate {
	byID := costLookup(costs)
	byDeveloper := make(map[string]*DeveloperAggregate)
	var order []string

	for _, entry := range entries {
		agg, ok := byDeveloper[entry.DeveloperID]
		if !ok {
			agg = &DeveloperAggregate{
				DeveloperID:      entry.DeveloperID,
				MinutesByProject: make(map[string]int),
			}
			byDeveloper[entry.DeveloperID] = agg
			order = append(order, entry.DeveloperID)
		}
		accumulate(entry, byID, &agg.TotalMinutes, &agg.BillableMinutes, &agg.NonBillableMinutes, &agg.TotalCost, &agg.EntryCount)
		agg.MinutesByProject[entry.ProjectID] += entry.DurationMinutes
	}

	out := make([]DeveloperAggregate, 0, len(order))
	for _, id := range order {
		out = append(out, *byDeveloper[id])
	}
	return out
}

// AggregateByDay buckets entries by the UTC date of StartAt, sorted ascending
// by date.
func AggregateByDay(entries []domain.TimeEntry, costs []EntryCost) []DayAggregate {
	byID := costLookup(costs)
	byDay := make(map[string]*DayAggregate)

	for _, entry := range entries {
		date := entry.StartAt.UTC().Format("2006-01-02")
		agg, ok := byDay[date]
		if !ok {
			agg = &DayAggregate{Date: date}
			byDay[date] = agg
		}
		accumulate(entry, byID, &agg.TotalMinutes, &agg.BillableMinutes, &agg.NonBillableMinutes, &agg.TotalCost, &agg.EntryCount)
	}

	dates := make([]string, 0, len(byDay))
	for date := range byDay {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	out := make([]DayAggregate, 0, len(dates))
	for _, date := range dates {
		out = append(out, *byDay[date])
	}
	return out
}

func accumulate(entry domain.TimeEntry, costs map[string]EntryCost, total, billable, nonBillable *int, cost *float64, count *int) {
	*total += entry.DurationMinutes
	if entry.Billable {
		*billable += entry.DurationMinutes
		if c, ok := costs[entry.ID]; ok {
			*cost = roundCents(*cost + c.Cost)
		}
	} else {
		*nonBillable += entry.DurationMinutes
	}
	*count++
}

// ExportSummary totals a finance export.
type ExportSummary struct {
	TotalMinutes       int       `json:"totalMinutes"`
	BillableMinutes    int       `json:"billableMinutes"`
	NonBillableMinutes int       `json:"nonBillableMinutes"`
	TotalCost          float64   `json:"totalCost"`
	Currency           string    `json:"currency"`
	PeriodStart        time.Time `json:"periodStart"`
	PeriodEnd          time.Time `json:"periodEnd"`
	EntryCount         int       `json:"entryCount"`
}

// Export bundles costed entries with every aggregation view.
type Export struct {
	Entries     []domain.TimeEntry   `json:"entries"`
	Costs       []EntryCost          `json:"costs"`
	ByProject   []ProjectAggregate   `json:"byProject"`
	ByDeveloper []DeveloperAggregate `json:"byDeveloper"`
	ByDay       []DayAggregate       `json:"byDay"`
	Summary     ExportSummary        `json:"summary"`
}

// ExportOptions controls export generation. The zero value uses 15-minute
// rounding and drops non-billable entries.
type ExportOptions struct {
	IncludeNonBillable bool
	RoundingInterval   domain.RoundingInterval
	At                 time.Time
}

// exportStatuses are the only statuses finance exports consider.
func exportable(status domain.EntryStatus) bool {
	switch status {
	case domain.StatusApproved, domain.StatusLocked, domain.StatusBilled:
		return true
	default:
		return false
	}
}

// GenerateExport filters entries to approved/locked/billed, costs them, and
// computes all aggregations plus a summary. Non-billable entries are dropped
// unless IncludeNonBillable is set.
func GenerateExport(entries []domain.TimeEntry, cards []domain.RateCard, opts ExportOptions) *Export {
	interval := opts.RoundingInterval
	if interval == domain.NoRounding {
		interval = domain.FifteenMinutes
	}
	at := opts.At
	if at.IsZero() {
		at = time.Now()
	}

	var included []domain.TimeEntry
	for _, entry := range entries {
		if !exportable(entry.Status) {
			continue
		}
		if !entry.Billable && !opts.IncludeNonBillable {
			continue
		}
		included = append(included, entry)
	}

	costs := CalculateEntryCosts(included, cards, interval, at)

	export := &Export{
		Entries:     included,
		Costs:       costs,
		ByProject:   AggregateByProject(included, costs),
		ByDeveloper: AggregateByDeveloper(included, costs),
		ByDay:       AggregateByDay(included, costs),
	}

	summary := ExportSummary{EntryCount: len(included)}
	for _, entry := range included {
		summary.TotalMinutes += entry.DurationMinutes
		if entry.Billable {
			summary.BillableMinutes += entry.DurationMinutes
		} else {
			summary.NonBillableMinutes += entry.DurationMinutes
		}
		if summary.PeriodStart.IsZero() || entry.StartAt.Before(summary.PeriodStart) {
			summary.PeriodStart = entry.StartAt
		}
		if entry.StartAt.After(summary.PeriodEnd) {
			summary.PeriodEnd = entry.StartAt
		}
	}
	for _, c := range costs {
		summary.TotalCost = roundCents(summary.TotalCost + c.Cost)
	}
	if len(costs) > 0 {
		summary.Currency = costs[0].Currency
	}
	export.Summary = summary

	return export
}

// InvoiceBundle maps costed entries onto a client invoice.
type InvoiceBundle struct {
	InvoiceID   string             `json:"invoiceId"`
	ClientID    string             `json:"clientId"`
	Entries     []domain.TimeEntry `json:"entries"`
	TotalCost   float64            `json:"totalCost"`
	Currency    string             `json:"currency"`
	ProjectIDs  []string           `json:"projectIds"`
	PeriodStart time.Time          `json:"periodStart"`
	PeriodEnd   time.Time          `json:"periodEnd"`
}

// MapToInvoice bundles entries with their summed billable cost and distinct
// projects. Both period bounds come from the entries' StartAt values, so the
// upper bound is the latest start, not the latest end. Downstream invoicing
// treats the period as the range of worked days, and entries never span a
// day boundary in practice; changing the bound would shift period labels on
// existing invoices.
func MapToInvoice(entries []domain.TimeEntry, costs []EntryCost, invoiceID, clientID string) *InvoiceBundle {
	byID := costLookup(costs)

	bundle := &InvoiceBundle{
		InvoiceID: invoiceID,
		ClientID:  clientID,
		Entries:   entries,
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		if c, ok := byID[entry.ID]; ok && entry.Billable {
			bundle.TotalCost = roundCents(bundle.TotalCost + c.Cost)
			if bundle.Currency == "" {
				bundle.Currency = c.Currency
			}
		}
		if !seen[entry.ProjectID] {
			seen[entry.ProjectID] = true
			bundle.ProjectIDs = append(bundle.ProjectIDs, entry.ProjectID)
		}
		if bundle.PeriodStart.IsZero() || entry.StartAt.Before(bundle.PeriodStart) {
			bundle.PeriodStart = entry.StartAt
		}
		if entry.StartAt.After(bundle.PeriodEnd) {
			bundle.PeriodEnd = entry.StartAt
		}
	}

	return bundle
}
