// Package returns implements the time-weighted return calculation engine:
// cash-flow ledger aggregation, per-account and multi-account TWR series,
// today-point synthesis, series clamp/rebase, and cross-series statistics.
package returns

import (
	"context"
	"sync"
	"time"

	"github.com/quantfold/twrengine/internal/common"
	"github.com/quantfold/twrengine/internal/interfaces"
	"github.com/quantfold/twrengine/internal/models"
)

// Compile-time interface check
var _ interfaces.ReturnService = (*Service)(nil)

// Service implements ReturnService. It holds no state between calls; every
// series is recomputed from freshly fetched inputs.
type Service struct {
	snapshots interfaces.SnapshotSource
	flows     interfaces.CashFlowSource
	live      interfaces.LiveBalanceSource
	config    *common.EngineConfig
	logger    *common.Logger
}

// NewService creates a new return calculation service.
func NewService(
	snapshots interfaces.SnapshotSource,
	flows interfaces.CashFlowSource,
	live interfaces.LiveBalanceSource,
	config *common.EngineConfig,
	logger *common.Logger,
) *Service {
	if config == nil {
		config = &common.EngineConfig{}
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		snapshots: snapshots,
		flows:     flows,
		live:      live,
		config:    config,
		logger:    logger,
	}
}

// AccountSeries fetches one account's snapshots and cash flows concurrently,
// computes its TWR series, and overlays today's live point.
func (s *Service) AccountSeries(ctx context.Context, accountID string, rng models.DateRange) ([]models.TWRPoint, error) {
	started := time.Now()

	var (
		wg       sync.WaitGroup
		snaps    []models.EquitySnapshot
		events   []models.CashFlowEvent
		snapErr  error
		eventErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		snaps, snapErr = s.snapshots.FetchSnapshots(ctx, accountID, rng.Start, rng.End, "1D")
	}()
	go func() {
		defer wg.Done()
		events, eventErr = s.FetchCashFlows(ctx, accountID, rng)
	}()
	wg.Wait()

	if snapErr != nil {
		return nil, snapErr
	}
	if eventErr != nil {
		return nil, eventErr
	}

	series := s.ComputeTWR(snaps, events)
	series = s.SynthesizeToday(ctx, []string{accountID}, series, rng, interfaces.TodayOverwrite)

	s.logger.Info().
		Str("account", accountID).
		Int("points", len(series)).
		Dur("elapsed", time.Since(started)).
		Msg("Account series computed")

	return series, nil
}
