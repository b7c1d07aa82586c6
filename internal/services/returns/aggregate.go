package returns

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quantfold/twrengine/internal/interfaces"
	"github.com/quantfold/twrengine/internal/models"
)

// accountFetch is one account's slot in the fan-out result set. Each slot is
// written only by its own goroutines; the join step reads them all
// single-threaded after the barrier.
type accountFetch struct {
	accountID string
	snapshots []models.EquitySnapshot
	flows     []models.CashFlowEvent
	snapErr   error
	flowErr   error
}

func (a *accountFetch) err() error {
	if a.snapErr != nil {
		return a.snapErr
	}
	return a.flowErr
}

// ComputeAggregateTWR fans out two fetches per account (snapshots and cash
// flows), joins all of them, sums equities and flows by calendar day across
// the accounts that succeeded, and computes the aggregate TWR series.
//
// If some accounts fail the aggregate is computed from the successes and a
// *models.PartialFetchError is returned alongside it; if every account
// fails the call fails.
func (s *Service) ComputeAggregateTWR(ctx context.Context, accountIDs []string, rng models.DateRange, opts interfaces.AggregateOptions) ([]models.TWRPoint, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	granularity := opts.Granularity
	if granularity == "" {
		granularity = "1D"
	}

	started := time.Now()

	// Fan-out: two independent fetches per account, each writing its own
	// pre-sized slot. The WaitGroup is the only synchronization point.
	results := make([]accountFetch, len(accountIDs))
	var wg sync.WaitGroup
	for i, id := range accountIDs {
		results[i].accountID = id

		wg.Add(2)
		go func(slot *accountFetch, id string) {
			defer wg.Done()
			slot.snapshots, slot.snapErr = s.snapshots.FetchSnapshots(ctx, id, rng.Start, rng.End, granularity)
		}(&results[i], id)
		go func(slot *accountFetch, id string) {
			defer wg.Done()
			slot.flows, slot.flowErr = s.FetchCashFlows(ctx, id, rng)
		}(&results[i], id)
	}
	wg.Wait()

	var fetched []accountFetch
	var succeeded []string
	failed := make(map[string]error)
	for i := range results {
		if err := results[i].err(); err != nil {
			failed[results[i].accountID] = err
			continue
		}
		fetched = append(fetched, results[i])
		succeeded = append(succeeded, results[i].accountID)
	}

	s.logger.Info().
		Int("accounts", len(accountIDs)).
		Int("succeeded", len(succeeded)).
		Int("failed", len(failed)).
		Dur("elapsed", time.Since(started)).
		Msg("Aggregate fetch complete")

	if len(fetched) == 0 {
		errs := make([]error, 0, len(failed))
		for id, err := range failed {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
		return nil, fmt.Errorf("all %d accounts failed to fetch: %w", len(accountIDs), errors.Join(errs...))
	}

	series := s.aggregateSeries(fetched, opts)

	if len(failed) > 0 {
		return series, &models.PartialFetchError{Succeeded: succeeded, Failed: failed}
	}
	return series, nil
}

// aggregateSeries sums equities and cash flows by calendar day across the
// fetched accounts and runs the TWR recurrence over the summed series. The
// recurrence and its cash-flow attribution rule are identical to the
// per-account path: ComputeTWR over the summed snapshots and the combined
// flow set.
func (s *Service) aggregateSeries(fetched []accountFetch, opts interfaces.AggregateOptions) []models.TWRPoint {
	// Index each account's equity and P&L by day, and collect the union of
	// all snapshot days.
	type snapEntry struct {
		equity float64
		pnl    float64
	}
	perAccount := make([]map[string]snapEntry, len(fetched))
	unionDays := make(map[string]time.Time)
	var allFlows []models.CashFlowEvent

	for i, acct := range fetched {
		perAccount[i] = make(map[string]snapEntry, len(acct.snapshots))
		for _, snap := range acct.snapshots {
			day := models.Day(snap.Day)
			key := models.DayKey(day)
			perAccount[i][key] = snapEntry{equity: snap.Equity, pnl: snap.PNL}
			unionDays[key] = day
		}
		allFlows = append(allFlows, acct.flows...)
	}

	days := make([]time.Time, 0, len(unionDays))
	for _, day := range unionDays {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	// Sum per day. By default an account with no snapshot on a day simply
	// does not contribute; with ForwardFill its last known equity is
	// carried instead.
	lastKnown := make([]float64, len(fetched))
	seen := make([]bool, len(fetched))
	summed := make([]models.EquitySnapshot, 0, len(days))

	for _, day := range days {
		key := models.DayKey(day)
		var equity, pnl float64
		for i := range fetched {
			if entry, ok := perAccount[i][key]; ok {
				equity += entry.equity
				pnl += entry.pnl
				lastKnown[i] = entry.equity
				seen[i] = true
			} else if opts.ForwardFill && seen[i] {
				equity += lastKnown[i]
			}
		}

		snap := models.EquitySnapshot{Day: day, Equity: equity, PNL: pnl}
		if base := equity - pnl; base > 0 {
			snap.PNLPct = pnl / base * 100
		}
		summed = append(summed, snap)
	}

	return s.ComputeTWR(summed, allFlows)
}
