package returns

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfold/twrengine/internal/common"
	"github.com/quantfold/twrengine/internal/models"
)

// Function adapters so tests can fake the collaborator feeds inline.

type snapshotSourceFunc func(ctx context.Context, accountID string, start, end time.Time, granularity string) ([]models.EquitySnapshot, error)

func (f snapshotSourceFunc) FetchSnapshots(ctx context.Context, accountID string, start, end time.Time, granularity string) ([]models.EquitySnapshot, error) {
	return f(ctx, accountID, start, end, granularity)
}

type flowSourceFunc func(ctx context.Context, accountID string, start, end time.Time, pageToken string, pageSize int) (*models.ActivityPage, error)

func (f flowSourceFunc) FetchActivityPage(ctx context.Context, accountID string, start, end time.Time, pageToken string, pageSize int) (*models.ActivityPage, error) {
	return f(ctx, accountID, start, end, pageToken, pageSize)
}

type liveSourceFunc func(ctx context.Context, accountID string) (decimal.Decimal, error)

func (f liveSourceFunc) CurrentEquity(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return f(ctx, accountID)
}

// noFlows is a cash-flow feed with nothing in it.
var noFlows = flowSourceFunc(func(ctx context.Context, accountID string, start, end time.Time, pageToken string, pageSize int) (*models.ActivityPage, error) {
	return &models.ActivityPage{}, nil
})

func newTestService(snapshots snapshotSourceFunc, flows flowSourceFunc, live liveSourceFunc) *Service {
	cfg := &common.EngineConfig{
		ExchangeTimezone:     "UTC",
		TodayEquityThreshold: 5,
		TodayTWRThresholdPct: 0.5,
		TodayFetchTimeout:    "2s",
	}
	return NewService(snapshots, flows, live, cfg, common.NewSilentLogger())
}

func day(s string) time.Time {
	t, err := time.Parse(models.DayFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func snap(dayStr string, equity float64) models.EquitySnapshot {
	return models.EquitySnapshot{Day: day(dayStr), Equity: equity}
}

func flow(dayStr string, kind models.FlowKind, amount float64) models.CashFlowEvent {
	return models.CashFlowEvent{Day: day(dayStr), Kind: kind, Amount: decimal.NewFromFloat(amount)}
}
