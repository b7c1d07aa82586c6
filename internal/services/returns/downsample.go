package returns

import (
	"github.com/quantfold/twrengine/internal/models"
)

// DownsampleToWeekly keeps the last point per ISO week. Cumulative TWR is
// already compounded, so dropping intermediate points preserves the curve.
func DownsampleToWeekly(points []models.TWRPoint) []models.TWRPoint {
	if len(points) == 0 {
		return nil
	}

	weekly := make([]models.TWRPoint, 0)
	for i, p := range points {
		if i == len(points)-1 {
			weekly = append(weekly, p)
			continue
		}
		y1, w1 := p.Day.ISOWeek()
		y2, w2 := points[i+1].Day.ISOWeek()
		if w1 != w2 || y1 != y2 {
			weekly = append(weekly, p)
		}
	}

	return weekly
}

// DownsampleToMonthly keeps the last point per calendar month.
func DownsampleToMonthly(points []models.TWRPoint) []models.TWRPoint {
	if len(points) == 0 {
		return nil
	}

	monthly := make([]models.TWRPoint, 0)
	for i, p := range points {
		if i == len(points)-1 || points[i+1].Day.Month() != p.Day.Month() || points[i+1].Day.Year() != p.Day.Year() {
			monthly = append(monthly, p)
		}
	}

	return monthly
}
