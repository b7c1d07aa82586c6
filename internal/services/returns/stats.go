package returns

import (
	"math"

	"github.com/quantfold/twrengine/internal/models"
)

const (
	// minCommonDays is the fewest overlapping days for a meaningful correlation.
	minCommonDays = 3

	tradingDaysPerYear = 252
)

// Correlation computes the Pearson correlation of day-over-day returns on
// the calendar days common to both series (intersection, not union).
// Fewer than 3 common days yields the neutral value 0.
func Correlation(a, b []models.TWRPoint) float64 {
	returnsB := make(map[string]float64, len(b))
	for _, p := range b {
		returnsB[models.DayKey(p.Day)] = p.DailyReturn
	}

	var xs, ys []float64
	for _, p := range a {
		if r, ok := returnsB[models.DayKey(p.Day)]; ok {
			xs = append(xs, p.DailyReturn)
			ys = append(ys, r)
		}
	}

	if len(xs) < minCommonDays {
		return 0
	}

	n := float64(len(xs))
	var meanX, meanY float64
	for i := range xs {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= n
	meanY /= n

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	denom := math.Sqrt(varX * varY)
	if denom == 0 {
		return 0
	}
	return cov / denom
}

// AnnualizedVolatility returns the population standard deviation of the
// series' daily returns scaled by sqrt(252).
func AnnualizedVolatility(series []models.TWRPoint) float64 {
	if len(series) == 0 {
		return 0
	}

	n := float64(len(series))
	var mean float64
	for _, p := range series {
		mean += p.DailyReturn
	}
	mean /= n

	var variance float64
	for _, p := range series {
		d := p.DailyReturn - mean
		variance += d * d
	}
	variance /= n

	return math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
}
