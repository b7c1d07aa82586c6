package interfaces

import (
	"context"

	"github.com/quantfold/twrengine/internal/models"
)

// TodayPolicy selects how the synthesized today point replaces an existing one.
type TodayPolicy int

const (
	// TodayOverwrite always overwrites or appends the today point.
	// Used for per-account series.
	TodayOverwrite TodayPolicy = iota

	// TodayDamped rewrites an existing synthesized point only when the
	// equity or cumulative-TWR move exceeds the configured thresholds,
	// suppressing jitter from transient live-balance noise. Used for
	// aggregate series.
	TodayDamped
)

// AggregateOptions configures multi-account aggregation.
type AggregateOptions struct {
	// Granularity for snapshot fetches; defaults to daily ("1D").
	Granularity string

	// ForwardFill carries an account's last known equity onto days where
	// it has no snapshot, instead of dropping it from the day's sum.
	ForwardFill bool
}

// ReturnService is the engine's consumer-facing contract. All computation
// methods are pure over their inputs; only the fetch/synthesize methods
// perform I/O through the injected sources.
type ReturnService interface {
	// FetchCashFlows drains the paginated cash-movement feed for one
	// account over a date range.
	FetchCashFlows(ctx context.Context, accountID string, rng models.DateRange) ([]models.CashFlowEvent, error)

	// ComputeTWR converts one account's snapshots and cash flows into a
	// daily-return / cumulative-TWR series.
	ComputeTWR(snapshots []models.EquitySnapshot, flows []models.CashFlowEvent) []models.TWRPoint

	// ComputeAggregateTWR fans out to all accounts, sums equities and
	// flows by calendar day, and computes an aggregate series. A
	// *models.PartialFetchError is returned alongside the series when
	// some but not all accounts failed.
	ComputeAggregateTWR(ctx context.Context, accountIDs []string, rng models.DateRange, opts AggregateOptions) ([]models.TWRPoint, error)

	// SynthesizeToday overlays a live "today" point onto a computed
	// series, best-effort within a bounded wait.
	SynthesizeToday(ctx context.Context, accountIDs []string, series []models.TWRPoint, rng models.DateRange, policy TodayPolicy) []models.TWRPoint

	// ClampAndRebase restricts a series to the visible window and
	// re-baselines it to 0% at the first retained point.
	ClampAndRebase(series []models.TWRPoint, visible models.DateRange) []models.TWRPoint
}
