package returns

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/quantfold/twrengine/internal/models"
)

// ComputeTWR converts one account's equity snapshots and cash-flow events
// into a daily-return / cumulative-TWR series.
//
// Cash flows are attributed to the interval between consecutive snapshot
// days: every flow dated in (prevDay, day] discounts day's return. The
// same-day net amounts carried on each point are display fields only.
//
// An empty snapshot series yields an empty result, not an error: "no data
// yet" is a valid, displayable state.
func (s *Service) ComputeTWR(snapshots []models.EquitySnapshot, flows []models.CashFlowEvent) []models.TWRPoint {
	if len(snapshots) == 0 {
		return nil
	}

	sorted := make([]models.EquitySnapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return models.Day(sorted[i].Day).Before(models.Day(sorted[j].Day))
	})

	sortedFlows := sortEvents(flows)
	byDay := netFlowsByDay(flows)

	points := make([]models.TWRPoint, 0, len(sorted))
	cursor := 0
	prevEquity := 0.0
	cumulative := 1.0
	started := false

	for i, snap := range sorted {
		day := models.Day(snap.Day)

		// Advance the flow cursor through (prevDay, day]. Flows on or
		// before the first snapshot day predate the return base and are
		// consumed without counting.
		interval := decimal.Zero
		for cursor < len(sortedFlows) && !models.Day(sortedFlows[cursor].Day).After(day) {
			if i > 0 {
				interval = interval.Add(sortedFlows[cursor].Signed())
			}
			cursor++
		}

		dailyReturn := 0.0
		if i == 0 || prevEquity <= 0 {
			// First point, or a trading restart: a withdrawal to zero
			// followed by a later deposit resets the compounding base
			// rather than dividing by zero.
			if snap.Equity > 0 {
				cumulative = 1.0
				started = true
			}
		} else if started {
			adjusted := snap.Equity - interval.InexactFloat64()
			// A withdrawal exceeding equity within the interval would
			// produce an unbounded or negative-base return; hold the day
			// flat instead.
			if adjusted > 0 {
				dailyReturn = adjusted/prevEquity - 1
				cumulative *= 1 + dailyReturn
			}
		}

		df := byDay[models.DayKey(day)]
		points = append(points, models.TWRPoint{
			Day:           day,
			Equity:        snap.Equity,
			PNL:           snap.PNL,
			PNLPct:        snap.PNLPct,
			Deposits:      df.Deposits,
			Withdrawals:   df.Withdrawals,
			NetCashFlow:   df.Net(),
			DailyReturn:   dailyReturn,
			CumulativeTWR: cumulative - 1,
		})

		prevEquity = snap.Equity
	}

	return points
}
