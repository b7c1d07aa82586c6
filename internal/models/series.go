// Package models defines the data model for the TWR calculation engine.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayFormat is the canonical calendar-day key layout.
const DayFormat = "2006-01-02"

// DayKey returns the canonical map key for a calendar day.
func DayKey(t time.Time) string {
	return t.Format(DayFormat)
}

// Day truncates a time to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return DayKey(a) == DayKey(b)
}

// DateRange is an inclusive calendar-day window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t's calendar day falls within the range.
func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(Day(r.Start)) && !d.After(Day(r.End))
}

// EquitySnapshot is one trading day's recorded equity and P&L for an
// account, as produced by the equity snapshot feed. Immutable once fetched.
type EquitySnapshot struct {
	Day    time.Time `json:"day"`
	Equity float64   `json:"equity"`
	PNL    float64   `json:"pnl"`
	PNLPct float64   `json:"pnl_pct"`
}

// FlowKind categorizes the direction of a cash movement.
type FlowKind string

const (
	FlowDeposit    FlowKind = "deposit"
	FlowWithdrawal FlowKind = "withdrawal"
)

// ValidFlowKind returns true if k is a recognized flow kind.
func ValidFlowKind(k FlowKind) bool {
	return k == FlowDeposit || k == FlowWithdrawal
}

// CashFlowEvent is a single dated cash movement. Amount is always
// non-negative; direction comes from Kind, never from the amount's sign.
type CashFlowEvent struct {
	Day    time.Time       `json:"day"`
	Kind   FlowKind        `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
}

// Signed returns the amount signed by kind: +amount for deposits,
// -amount for withdrawals.
func (e CashFlowEvent) Signed() decimal.Decimal {
	if e.Kind == FlowWithdrawal {
		return e.Amount.Neg()
	}
	return e.Amount
}

// ActivityPage is one page of the paginated cash-movement feed, already
// normalized from whichever wire shape the feed produced.
type ActivityPage struct {
	Events        []CashFlowEvent `json:"events"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

// TWRPoint is one day of a computed time-weighted return series.
// CumulativeTWR is a fraction with 0 meaning the baseline; consumers wanting
// percent use CumulativeTWRPct.
type TWRPoint struct {
	Day           time.Time       `json:"day"`
	Equity        float64         `json:"equity"`
	PNL           float64         `json:"pnl"`
	PNLPct        float64         `json:"pnl_pct"`
	Deposits      decimal.Decimal `json:"deposits"`
	Withdrawals   decimal.Decimal `json:"withdrawals"`
	NetCashFlow   decimal.Decimal `json:"net_cash_flow"`
	DailyReturn   float64         `json:"daily_return"`
	CumulativeTWR float64         `json:"cumulative_twr"`
	Synthesized   bool            `json:"synthesized,omitempty"`
}

// CumulativeTWRPct returns the cumulative TWR as a percentage.
func (p TWRPoint) CumulativeTWRPct() float64 {
	return p.CumulativeTWR * 100
}
