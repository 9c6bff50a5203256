package campaign

import (
	"math/big"
	"testing"
	"time"

	"github.com/crisramb665/FundChain/internal/amount"
	"github.com/ethereum/go-ethereum/common"
)

var (
	owner  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	backer = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	other  = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	start  = time.Unix(1_700_000_000, 0)
)

func eth(s string) *big.Int {
	v, err := amount.ParseBaseUnits(s, 18)
	if err != nil {
		panic(err)
	}
	return v
}

func record(goal, pledged string, days int, claimed bool) Record {
	return Record{
		ID:        0,
		Owner:     owner,
		Goal:      eth(goal),
		Pledged:   eth(pledged),
		StartAt:   uint64(start.Unix()),
		EndAt:     uint64(start.Add(time.Duration(days) * 24 * time.Hour).Unix()),
		Claimed:   claimed,
		Approved:  true,
		MaxPledge: new(big.Int),
	}
}

func TestDeriveActiveCampaign(t *testing.T) {
	r := record("1.0", "0.6", 7, false)
	v := Derive(r, start.Add(time.Hour))
	if v.ProgressPercentage != 60 || v.BarPercentage != 60 {
		t.Fatalf("progress = %d/%d, want 60", v.ProgressPercentage, v.BarPercentage)
	}
	if !v.IsActive {
		t.Fatal("campaign should be active")
	}
	if v.DaysLeft != 7 {
		t.Fatalf("days left = %d, want 7", v.DaysLeft)
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		pledged, goal *big.Int
		want          uint64
	}{
		{big.NewInt(0), big.NewInt(100), 0},
		{big.NewInt(1), big.NewInt(3), 33},
		{big.NewInt(120), big.NewInt(100), 120},
		{big.NewInt(5), big.NewInt(0), 0},
		{eth("1.2"), eth("1"), 120},
	}
	for _, tt := range tests {
		if got := Progress(tt.pledged, tt.goal); got != tt.want {
			t.Errorf("Progress(%s, %s) = %d, want %d", tt.pledged, tt.goal, got, tt.want)
		}
	}
}

func TestBarPercentageClamped(t *testing.T) {
	v := Derive(record("1.0", "1.01", 1, false), start)
	if v.ProgressPercentage != 101 {
		t.Fatalf("raw progress = %d", v.ProgressPercentage)
	}
	if v.BarPercentage != 100 {
		t.Fatalf("bar = %d, want 100", v.BarPercentage)
	}
}

func TestDaysLeftMonotonic(t *testing.T) {
	r := record("1", "0", 3, false)
	prev := DaysLeft(r.EndAt, start)
	for h := 1; h <= 24*4; h++ {
		now := start.Add(time.Duration(h) * time.Hour)
		d := DaysLeft(r.EndAt, now)
		if d > prev {
			t.Fatalf("days left increased at +%dh: %d > %d", h, d, prev)
		}
		if now.Unix() >= int64(r.EndAt) && d != 0 {
			t.Fatalf("days left = %d after end", d)
		}
		prev = d
	}
	if got := DaysLeft(r.EndAt, start.Add(47*time.Hour)); got != 2 {
		t.Fatalf("ceil rounding: got %d, want 2", got)
	}
}

func TestFailedCampaignScenario(t *testing.T) {
	r := record("1.0", "0.6", 7, false)
	after := start.Add(8 * 24 * time.Hour)
	mine := eth("0.2")

	if !CanRefund(r, backer, mine, after) || CanWithdraw(r, backer, after) {
		t.Fatal("backer should be refund-eligible only")
	}
	if CanWithdraw(r, owner, after) || CanRefund(r, owner, new(big.Int), after) {
		t.Fatal("owner should have no action")
	}
	if s := StatusFor(r, backer, mine, after); s != StatusFailedUnrefunded {
		t.Fatalf("backer status = %s", s)
	}
	if s := StatusFor(r, other, new(big.Int), after); s != StatusEnded {
		t.Fatalf("stranger status = %s", s)
	}
}

func TestSuccessfulCampaignScenario(t *testing.T) {
	r := record("1.0", "1.2", 7, false)
	after := start.Add(8 * 24 * time.Hour)

	if !CanWithdraw(r, owner, after) {
		t.Fatal("owner should be withdraw-eligible")
	}
	if CanRefund(r, backer, eth("0.5"), after) {
		t.Fatal("backer must not be refund-eligible on a funded campaign")
	}
	if s := StatusFor(r, owner, nil, after); s != StatusSuccessfulUnclaimed {
		t.Fatalf("status = %s", s)
	}

	r.Claimed = true
	if CanWithdraw(r, owner, after) {
		t.Fatal("claimed campaign cannot be withdrawn twice")
	}
	if s := StatusFor(r, owner, nil, after); s != StatusClaimed {
		t.Fatalf("status = %s", s)
	}
}

func TestWithdrawAndRefundExclusive(t *testing.T) {
	viewers := []common.Address{owner, backer, other, {}}
	pledges := []*big.Int{nil, new(big.Int), eth("0.1"), eth("2")}
	goals := []string{"1", "0.5"}
	times := []time.Time{start, start.Add(6 * 24 * time.Hour), start.Add(7 * 24 * time.Hour), start.Add(30 * 24 * time.Hour)}

	for _, goal := range goals {
		for _, claimed := range []bool{false, true} {
			r := record(goal, "0.7", 7, claimed)
			for _, v := range viewers {
				for _, p := range pledges {
					for _, now := range times {
						if CanWithdraw(r, v, now) && CanRefund(r, v, p, now) {
							t.Fatalf("both eligible: goal=%s claimed=%v viewer=%s pledge=%v now=%v", goal, claimed, v.Hex(), p, now)
						}
					}
				}
			}
		}
	}
}

func TestPendingStatus(t *testing.T) {
	r := record("1", "0", 7, false)
	r.Approved = false
	if s := StatusFor(r, backer, nil, start); s != StatusPending {
		t.Fatalf("status = %s, want Pending", s)
	}
	if s := StatusFor(r, backer, nil, start.Add(8*24*time.Hour)); s != StatusEnded {
		t.Fatalf("expired unapproved status = %s, want Ended", s)
	}
}

func TestCanCancel(t *testing.T) {
	r := record("1", "0.1", 7, false)
	if !CanCancel(r, owner, start) || CanCancel(r, backer, start) {
		t.Fatal("only the owner may cancel an open campaign")
	}
	if CanCancel(r, owner, start.Add(8*24*time.Hour)) {
		t.Fatal("ended campaign cannot be cancelled")
	}
}

func TestFarFutureEndAtStaysOpen(t *testing.T) {
	r := record("100", "10", 1, false)
	r.EndAt = 1 << 63

	v := Derive(r, start)
	if !v.IsActive || v.DaysLeft == 0 {
		t.Fatalf("IsActive=%v DaysLeft=%d, want an open campaign", v.IsActive, v.DaysLeft)
	}
	if got := StatusFor(r, backer, eth("1"), start); got != StatusActive {
		t.Fatalf("status = %s, want %s", got, StatusActive)
	}
	if CanRefund(r, backer, eth("1"), start) || CanWithdraw(r, owner, start) {
		t.Fatal("no settlement is possible while the window is open")
	}
	if !CanCancel(r, owner, start) {
		t.Fatal("owner should be able to cancel an open campaign")
	}

	r.EndAt = ^uint64(0)
	v = Derive(r, start)
	want := (^uint64(0)-uint64(start.Unix()))/secondsPerDay + 1
	if !v.IsActive || v.DaysLeft != want {
		t.Fatalf("IsActive=%v DaysLeft=%d, want open with %d days", v.IsActive, v.DaysLeft, want)
	}
}
