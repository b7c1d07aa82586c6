package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCashFlowEvent_Signed(t *testing.T) {
	deposit := CashFlowEvent{Kind: FlowDeposit, Amount: decimal.NewFromInt(100)}
	if !deposit.Signed().Equal(decimal.NewFromInt(100)) {
		t.Errorf("deposit signed = %s, want 100", deposit.Signed())
	}

	withdrawal := CashFlowEvent{Kind: FlowWithdrawal, Amount: decimal.NewFromInt(40)}
	if !withdrawal.Signed().Equal(decimal.NewFromInt(-40)) {
		t.Errorf("withdrawal signed = %s, want -40", withdrawal.Signed())
	}
}

func TestDayHelpers(t *testing.T) {
	ts := time.Date(2024, 3, 15, 14, 30, 45, 0, time.UTC)

	if got := DayKey(ts); got != "2024-03-15" {
		t.Errorf("DayKey = %q, want 2024-03-15", got)
	}

	d := Day(ts)
	if d.Hour() != 0 || d.Minute() != 0 || d.Second() != 0 {
		t.Errorf("Day did not truncate to midnight: %v", d)
	}
	if !SameDay(ts, d) {
		t.Error("SameDay(ts, Day(ts)) = false")
	}
	if SameDay(ts, ts.AddDate(0, 0, 1)) {
		t.Error("SameDay across days = true")
	}
}

func TestDateRange_Contains(t *testing.T) {
	rng := DateRange{
		Start: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
	}

	cases := []struct {
		day  time.Time
		want bool
	}{
		{time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2024, 1, 20, 23, 59, 0, 0, time.UTC), true},
		{time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), true},
		{time.Date(2024, 1, 9, 23, 59, 0, 0, time.UTC), false},
		{time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC), false},
	}
	for _, c := range cases {
		if got := rng.Contains(c.day); got != c.want {
			t.Errorf("Contains(%v) = %v, want %v", c.day, got, c.want)
		}
	}
}

func TestTWRPoint_CumulativeTWRPct(t *testing.T) {
	p := TWRPoint{CumulativeTWR: 0.2135}
	if got := p.CumulativeTWRPct(); got != 21.35 {
		t.Errorf("CumulativeTWRPct = %v, want 21.35", got)
	}
}

func TestValidFlowKind(t *testing.T) {
	if !ValidFlowKind(FlowDeposit) || !ValidFlowKind(FlowWithdrawal) {
		t.Error("known kinds reported invalid")
	}
	if ValidFlowKind(FlowKind("dividend")) {
		t.Error("unknown kind reported valid")
	}
}

func TestPartialFetchError(t *testing.T) {
	err := &PartialFetchError{
		Succeeded: []string{"A"},
		Failed:    map[string]error{"C": errTest, "B": errTest},
	}

	if got := err.FailedAccounts(); len(got) != 2 || got[0] != "B" || got[1] != "C" {
		t.Errorf("FailedAccounts = %v, want [B C]", got)
	}
	if msg := err.Error(); msg != "2 of 3 accounts failed to fetch: B, C" {
		t.Errorf("Error() = %q", msg)
	}
}

var errTest = timeoutErr{}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "timeout" }
