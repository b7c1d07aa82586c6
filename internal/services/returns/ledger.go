package returns

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfold/twrengine/internal/models"
)

const (
	// activityPageSize is the feed's maximum page size; a shorter page
	// marks the end of the feed.
	activityPageSize = 100

	// maxActivityPages caps pagination against a feed that never signals
	// completion. Hitting it is a feed defect, not a correctness limit.
	maxActivityPages = 1000
)

// FetchCashFlows drains the paginated cash-movement feed for one account
// over a date range. Pagination continues while a page comes back full and
// carries a continuation token; the hard page cap surfaces whatever was
// collected rather than spinning forever.
func (s *Service) FetchCashFlows(ctx context.Context, accountID string, rng models.DateRange) ([]models.CashFlowEvent, error) {
	var events []models.CashFlowEvent
	token := ""

	for page := 0; page < maxActivityPages; page++ {
		p, err := s.flows.FetchActivityPage(ctx, accountID, rng.Start, rng.End, token, activityPageSize)
		if err != nil {
			return nil, err
		}

		events = append(events, p.Events...)

		if len(p.Events) < activityPageSize || p.NextPageToken == "" {
			return sortEvents(events), nil
		}
		token = p.NextPageToken
	}

	s.logger.Warn().
		Str("account", accountID).
		Int("pages", maxActivityPages).
		Int("events", len(events)).
		Msg("Activity pagination cap reached; returning collected events")

	return sortEvents(events), nil
}

// sortEvents orders events ascending by day, stably, so cursor-based
// interval attribution can run in a single pass.
func sortEvents(events []models.CashFlowEvent) []models.CashFlowEvent {
	sorted := make([]models.CashFlowEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return models.Day(sorted[i].Day).Before(models.Day(sorted[j].Day))
	})
	return sorted
}

// dayFlow holds one calendar day's netted deposits and withdrawals.
type dayFlow struct {
	Deposits    decimal.Decimal
	Withdrawals decimal.Decimal
}

// Net returns deposits minus withdrawals for the day.
func (f dayFlow) Net() decimal.Decimal {
	return f.Deposits.Sub(f.Withdrawals)
}

// netFlowsByDay nets deposits and withdrawals per calendar day. These are
// the display amounts carried on each point; the return recurrence uses
// interval flows, not these.
func netFlowsByDay(events []models.CashFlowEvent) map[string]dayFlow {
	byDay := make(map[string]dayFlow)
	for _, e := range events {
		key := models.DayKey(e.Day)
		f := byDay[key]
		switch e.Kind {
		case models.FlowDeposit:
			f.Deposits = f.Deposits.Add(e.Amount)
		case models.FlowWithdrawal:
			f.Withdrawals = f.Withdrawals.Add(e.Amount)
		}
		byDay[key] = f
	}
	return byDay
}

// signedFlowTotal sums the signed amounts of all events on a single day.
func signedFlowTotal(events []models.CashFlowEvent, day time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, e := range events {
		if models.SameDay(e.Day, day) {
			total = total.Add(e.Signed())
		}
	}
	return total
}
