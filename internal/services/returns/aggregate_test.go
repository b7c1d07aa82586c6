package returns

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/twrengine/internal/interfaces"
	"github.com/quantfold/twrengine/internal/models"
)

func snapshotsByAccount(data map[string][]models.EquitySnapshot) snapshotSourceFunc {
	return func(ctx context.Context, accountID string, start, end time.Time, granularity string) ([]models.EquitySnapshot, error) {
		snaps, ok := data[accountID]
		if !ok {
			return nil, fmt.Errorf("account %s: not found", accountID)
		}
		return snaps, nil
	}
}

func flowsByAccount(data map[string][]models.CashFlowEvent) flowSourceFunc {
	return func(ctx context.Context, accountID string, start, end time.Time, pageToken string, pageSize int) (*models.ActivityPage, error) {
		return &models.ActivityPage{Events: data[accountID]}, nil
	}
}

var aggRange = models.DateRange{Start: day("2024-01-01"), End: day("2024-01-31")}

func TestComputeAggregateTWR_SumsEquitiesByExactDay(t *testing.T) {
	// Account B has no snapshot on day 2: it is dropped from that day's
	// sum, not forward-filled.
	snaps := snapshotsByAccount(map[string][]models.EquitySnapshot{
		"A": {snap("2024-01-02", 100), snap("2024-01-03", 110)},
		"B": {snap("2024-01-02", 50)},
	})

	svc := newTestService(snaps, noFlows, nil)
	series, err := svc.ComputeAggregateTWR(context.Background(), []string{"A", "B"}, aggRange, interfaces.AggregateOptions{})
	require.NoError(t, err)
	require.Len(t, series, 2)

	assert.Equal(t, 150.0, series[0].Equity)
	assert.Equal(t, 110.0, series[1].Equity)
	assert.InDelta(t, 110.0/150.0-1, series[1].DailyReturn, 1e-12)
}

func TestComputeAggregateTWR_ForwardFill(t *testing.T) {
	snaps := snapshotsByAccount(map[string][]models.EquitySnapshot{
		"A": {snap("2024-01-02", 100), snap("2024-01-03", 110)},
		"B": {snap("2024-01-02", 50)},
	})

	svc := newTestService(snaps, noFlows, nil)
	series, err := svc.ComputeAggregateTWR(context.Background(), []string{"A", "B"}, aggRange, interfaces.AggregateOptions{ForwardFill: true})
	require.NoError(t, err)
	require.Len(t, series, 2)

	assert.Equal(t, 150.0, series[0].Equity)
	assert.Equal(t, 160.0, series[1].Equity, "B's last known 50 is carried onto day 2")
	assert.InDelta(t, 160.0/150.0-1, series[1].DailyReturn, 1e-12)
}

func TestComputeAggregateTWR_FlowsSummedAcrossAccounts(t *testing.T) {
	snaps := snapshotsByAccount(map[string][]models.EquitySnapshot{
		"A": {snap("2024-01-02", 100), snap("2024-01-03", 120)},
		"B": {snap("2024-01-02", 100), snap("2024-01-03", 110)},
	})
	flows := flowsByAccount(map[string][]models.CashFlowEvent{
		"A": {flow("2024-01-03", models.FlowDeposit, 10)},
		"B": {flow("2024-01-03", models.FlowDeposit, 5)},
	})

	svc := newTestService(snaps, flows, nil)
	series, err := svc.ComputeAggregateTWR(context.Background(), []string{"A", "B"}, aggRange, interfaces.AggregateOptions{})
	require.NoError(t, err)
	require.Len(t, series, 2)

	// (230 - 15) / 200 - 1 = 7.5%
	assert.InDelta(t, 0.075, series[1].DailyReturn, 1e-12)
	assert.Equal(t, 15.0, series[1].Deposits.InexactFloat64())
}

func TestComputeAggregateTWR_PartialFailure(t *testing.T) {
	snaps := snapshotsByAccount(map[string][]models.EquitySnapshot{
		"A": {snap("2024-01-02", 100), snap("2024-01-03", 110)},
		// "B" missing: its fetch fails
	})

	svc := newTestService(snaps, noFlows, nil)
	series, err := svc.ComputeAggregateTWR(context.Background(), []string{"A", "B"}, aggRange, interfaces.AggregateOptions{})

	var partial *models.PartialFetchError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{"B"}, partial.FailedAccounts())
	assert.Equal(t, []string{"A"}, partial.Succeeded)

	// The aggregate is still computed from the account that succeeded.
	require.Len(t, series, 2)
	assert.Equal(t, 100.0, series[0].Equity)
	assert.Equal(t, 110.0, series[1].Equity)
}

func TestComputeAggregateTWR_AllAccountsFail(t *testing.T) {
	snaps := snapshotSourceFunc(func(ctx context.Context, accountID string, start, end time.Time, granularity string) ([]models.EquitySnapshot, error) {
		return nil, errors.New("service unavailable")
	})

	svc := newTestService(snaps, noFlows, nil)
	series, err := svc.ComputeAggregateTWR(context.Background(), []string{"A", "B"}, aggRange, interfaces.AggregateOptions{})

	require.Error(t, err)
	var partial *models.PartialFetchError
	assert.False(t, errors.As(err, &partial), "all-fail must be a hard failure, not a partial one")
	assert.Nil(t, series)
}

func TestComputeAggregateTWR_NoAccounts(t *testing.T) {
	svc := newTestService(nil, noFlows, nil)
	series, err := svc.ComputeAggregateTWR(context.Background(), nil, aggRange, interfaces.AggregateOptions{})
	assert.NoError(t, err)
	assert.Empty(t, series)
}

func TestComputeAggregateTWR_UnionOfDays(t *testing.T) {
	// Days present in any account appear in the output, ascending, once.
	snaps := snapshotsByAccount(map[string][]models.EquitySnapshot{
		"A": {snap("2024-01-02", 100), snap("2024-01-04", 105)},
		"B": {snap("2024-01-03", 50)},
	})

	svc := newTestService(snaps, noFlows, nil)
	series, err := svc.ComputeAggregateTWR(context.Background(), []string{"A", "B"}, aggRange, interfaces.AggregateOptions{})
	require.NoError(t, err)
	require.Len(t, series, 3)

	assert.Equal(t, "2024-01-02", models.DayKey(series[0].Day))
	assert.Equal(t, "2024-01-03", models.DayKey(series[1].Day))
	assert.Equal(t, "2024-01-04", models.DayKey(series[2].Day))
	assert.Equal(t, 100.0, series[0].Equity)
	assert.Equal(t, 50.0, series[1].Equity)
	assert.Equal(t, 105.0, series[2].Equity)
}
