package returns

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfold/twrengine/internal/interfaces"
	"github.com/quantfold/twrengine/internal/models"
)

// todayResult carries the live reads the synthesized point is built from.
type todayResult struct {
	equity decimal.Decimal
	flows  []models.CashFlowEvent
	err    error
}

// SynthesizeToday overlays a live "today" point onto an already-computed
// series. It applies only when today (exchange timezone) falls inside the
// requested range and is not already covered by a real snapshot.
//
// The live reads run as a best-effort overlay behind a bounded wait: if
// they do not complete within the configured timeout, the historical
// series is returned unchanged rather than blocking.
func (s *Service) SynthesizeToday(ctx context.Context, accountIDs []string, series []models.TWRPoint, rng models.DateRange, policy interfaces.TodayPolicy) []models.TWRPoint {
	if len(series) == 0 || len(accountIDs) == 0 || s.live == nil {
		return series
	}

	today := models.Day(time.Now().In(s.config.Location()))
	if !rng.Contains(today) {
		return series
	}

	last := series[len(series)-1]
	if models.SameDay(last.Day, today) && !last.Synthesized {
		// Today is already a real snapshot day.
		return series
	}

	ch := make(chan todayResult, 1)
	go func() {
		ch <- s.fetchToday(ctx, accountIDs, today)
	}()

	timer := time.NewTimer(s.config.GetTodayFetchTimeout())
	defer timer.Stop()

	var res todayResult
	select {
	case res = <-ch:
	case <-timer.C:
		s.logger.Warn().
			Dur("timeout", s.config.GetTodayFetchTimeout()).
			Msg("Today fetch timed out; returning series without today point")
		return series
	case <-ctx.Done():
		return series
	}

	if res.err != nil {
		s.logger.Warn().Err(res.err).Msg("Today fetch failed; returning series without today point")
		return series
	}

	return s.applyTodayPoint(series, today, res, policy)
}

// fetchToday fans out a live-equity read and a today-only cash-flow fetch
// per account and joins them. Any failure abandons the overlay; the
// synthesized point is all-or-nothing.
func (s *Service) fetchToday(ctx context.Context, accountIDs []string, today time.Time) todayResult {
	type slot struct {
		equity decimal.Decimal
		flows  []models.CashFlowEvent
		eqErr  error
		flErr  error
	}

	slots := make([]slot, len(accountIDs))
	todayRange := models.DateRange{Start: today, End: today}

	var wg sync.WaitGroup
	for i, id := range accountIDs {
		wg.Add(2)
		go func(sl *slot, id string) {
			defer wg.Done()
			sl.equity, sl.eqErr = s.live.CurrentEquity(ctx, id)
		}(&slots[i], id)
		go func(sl *slot, id string) {
			defer wg.Done()
			sl.flows, sl.flErr = s.FetchCashFlows(ctx, id, todayRange)
		}(&slots[i], id)
	}
	wg.Wait()

	total := decimal.Zero
	var flows []models.CashFlowEvent
	for i := range slots {
		if slots[i].eqErr != nil {
			return todayResult{err: slots[i].eqErr}
		}
		if slots[i].flErr != nil {
			return todayResult{err: slots[i].flErr}
		}
		total = total.Add(slots[i].equity)
		flows = append(flows, slots[i].flows...)
	}

	return todayResult{equity: total, flows: flows}
}

// applyTodayPoint computes the synthesized point and appends or overwrites
// it according to the write policy.
func (s *Service) applyTodayPoint(series []models.TWRPoint, today time.Time, res todayResult, policy interfaces.TodayPolicy) []models.TWRPoint {
	last := series[len(series)-1]

	// When an earlier synthesized point is being replaced, the compounding
	// base is the point before it.
	base := last
	if last.Synthesized && models.SameDay(last.Day, today) && len(series) >= 2 {
		base = series[len(series)-2]
	}

	liveEquity := res.equity.InexactFloat64()
	netToday := signedFlowTotal(res.flows, today)

	dailyReturn := 0.0
	adjusted := liveEquity - netToday.InexactFloat64()
	if base.Equity > 0 && adjusted > 0 {
		dailyReturn = adjusted/base.Equity - 1
	}
	cumulative := (1+base.CumulativeTWR)*(1+dailyReturn) - 1

	df := netFlowsByDay(res.flows)[models.DayKey(today)]
	point := models.TWRPoint{
		Day:           today,
		Equity:        liveEquity,
		PNL:           adjusted - base.Equity,
		Deposits:      df.Deposits,
		Withdrawals:   df.Withdrawals,
		NetCashFlow:   df.Net(),
		DailyReturn:   dailyReturn,
		CumulativeTWR: cumulative,
		Synthesized:   true,
	}
	if base.Equity > 0 {
		point.PNLPct = (adjusted/base.Equity - 1) * 100
	}

	if policy == interfaces.TodayDamped && last.Synthesized && models.SameDay(last.Day, today) {
		equityDelta := math.Abs(liveEquity - last.Equity)
		twrDelta := math.Abs(cumulative - last.CumulativeTWR)
		relative := twrDelta / math.Max(math.Abs(last.CumulativeTWR), 1e-6)
		if equityDelta < s.config.TodayEquityThreshold && relative*100 < s.config.TodayTWRThresholdPct {
			// Below both thresholds: keep the existing point to avoid
			// visible jitter from transient live-balance noise.
			return series
		}
	}

	out := make([]models.TWRPoint, len(series), len(series)+1)
	copy(out, series)
	if models.SameDay(last.Day, today) {
		out[len(out)-1] = point
	} else {
		out = append(out, point)
	}
	return out
}
