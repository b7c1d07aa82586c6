package returns

import (
	"github.com/quantfold/twrengine/internal/models"
)

// ClampAndRebase restricts a series to the visible window and re-baselines
// it so the first retained point reads 0%.
func (s *Service) ClampAndRebase(series []models.TWRPoint, visible models.DateRange) []models.TWRPoint {
	return rebaseFromReturns(Clamp(series, visible))
}

// Clamp retains only points whose day falls within
// [startOfDay(start), startOfDay(end) + 1 day).
func Clamp(series []models.TWRPoint, visible models.DateRange) []models.TWRPoint {
	start := models.Day(visible.Start)
	endExcl := models.Day(visible.End).AddDate(0, 0, 1)

	out := make([]models.TWRPoint, 0, len(series))
	for _, p := range series {
		day := models.Day(p.Day)
		if !day.Before(start) && day.Before(endExcl) {
			out = append(out, p)
		}
	}
	return out
}

// rebaseFromReturns is the canonical rebase primitive: zero the first
// point and recompound forward from each point's daily return. Every other
// rebase form is derived from this one so the strategies cannot silently
// diverge.
func rebaseFromReturns(series []models.TWRPoint) []models.TWRPoint {
	if len(series) == 0 {
		return series
	}

	out := make([]models.TWRPoint, len(series))
	copy(out, series)

	out[0].CumulativeTWR = 0
	cumulative := 1.0
	for i := 1; i < len(out); i++ {
		cumulative *= 1 + out[i].DailyReturn
		out[i].CumulativeTWR = cumulative - 1
	}
	return out
}

// RebasePercentages rebases a cumulative-percentage series for which no
// per-day returns are available (e.g. a benchmark overlay in a cross-series
// comparison). Day-over-day returns are reconstructed from consecutive
// cumulative percentages and fed through the canonical primitive, which
// makes the result algebraically equal to the multiplicative form
// ((1+v_i/100)/(1+v_0/100) - 1) * 100.
func RebasePercentages(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	points := make([]models.TWRPoint, len(values))
	for i, v := range values {
		points[i].CumulativeTWR = v / 100
		if i > 0 {
			prev := 1 + values[i-1]/100
			if prev != 0 {
				points[i].DailyReturn = (1+v/100)/prev - 1
			}
		}
	}

	rebased := rebaseFromReturns(points)
	out := make([]float64, len(rebased))
	for i, p := range rebased {
		out[i] = p.CumulativeTWR * 100
	}
	return out
}
