// Package interfaces defines the collaborator and service contracts for the engine.
package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfold/twrengine/internal/models"
)

// SnapshotSource provides daily equity snapshots for an account.
type SnapshotSource interface {
	// FetchSnapshots retrieves one equity snapshot per trading day in
	// [start, end], ordered ascending by day.
	FetchSnapshots(ctx context.Context, accountID string, start, end time.Time, granularity string) ([]models.EquitySnapshot, error)
}

// CashFlowSource provides the paginated cash-movement feed for an account.
type CashFlowSource interface {
	// FetchActivityPage retrieves one page of cash-movement activities.
	// An empty pageToken requests the first page. The returned page's
	// NextPageToken is empty when the feed has no further pages.
	FetchActivityPage(ctx context.Context, accountID string, start, end time.Time, pageToken string, pageSize int) (*models.ActivityPage, error)
}

// LiveBalanceSource reads an account's current (non-snapshot) equity.
// Used only by the today-point synthesizer.
type LiveBalanceSource interface {
	CurrentEquity(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// BrokerageClient bundles the three feeds a single brokerage connection provides.
type BrokerageClient interface {
	SnapshotSource
	CashFlowSource
	LiveBalanceSource
}
