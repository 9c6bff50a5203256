package campaign

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/crisramb665/FundChain/internal/chain"
	"github.com/crisramb665/FundChain/internal/chain/chaintest"
	"github.com/crisramb665/FundChain/internal/config"
	"github.com/ethereum/go-ethereum/common"
)

var contractAddr = common.HexToAddress("0x00000000000000000000000000000000000C0FFE")

func newReader(t *testing.T) (*StateReader, *chaintest.Backend) {
	t.Helper()
	backend := chaintest.New(contractAddr, 534351, other)
	client := chain.NewClient(config.NetworkConfig{
		ChainID:         534351,
		RPCURL:          "http://fake",
		ContractAddress: contractAddr.Hex(),
		NativeDecimals:  18,
	}, nil, chain.WithDialer(backend.Dialer()))
	return NewStateReader(client, WithClock(backend.Now), WithConcurrency(3)), backend
}

func TestGetCampaign(t *testing.T) {
	r, b := newReader(t)
	now := b.Now()
	id := b.Seed(owner, eth("1"), eth("0.6"), now, now.Add(7*24*time.Hour), true)

	v, ok := r.GetCampaign(context.Background(), id)
	if !ok {
		t.Fatal("campaign not found")
	}
	if v.Owner != owner || v.Goal.Cmp(eth("1")) != 0 || v.ProgressPercentage != 60 || !v.IsActive {
		t.Fatalf("view = %+v", v)
	}

	if _, ok := r.GetCampaign(context.Background(), 99); ok {
		t.Fatal("missing campaign should be absent")
	}
}

func TestGetAllCampaignsSkipsFailedIndex(t *testing.T) {
	r, b := newReader(t)
	now := b.Now()
	for i := 0; i < 6; i++ {
		b.Seed(owner, eth("1"), big.NewInt(int64(i)), now, now.Add(time.Hour), true)
	}
	b.FailCampaigns[2] = true
	b.FailCampaigns[4] = true

	views := r.GetAllCampaigns(context.Background())
	want := []uint64{0, 1, 3, 5}
	if len(views) != len(want) {
		t.Fatalf("got %d campaigns, want %d", len(views), len(want))
	}
	for i, v := range views {
		if v.ID != want[i] {
			t.Fatalf("position %d: id %d, want %d", i, v.ID, want[i])
		}
		if v.Pledged.Int64() != int64(want[i]) {
			t.Fatalf("campaign %d has pledged %s", v.ID, v.Pledged)
		}
	}
}

func TestGetAllCampaignsNetworkDown(t *testing.T) {
	r, b := newReader(t)
	b.Seed(owner, eth("1"), eth("0"), b.Now(), b.Now().Add(time.Hour), true)
	b.CallErr = errors.New("dial tcp: connection refused")

	if views := r.GetAllCampaigns(context.Background()); len(views) != 0 {
		t.Fatalf("expected empty list, got %d", len(views))
	}
}

func TestGetAllCampaignsCapsImplausibleCount(t *testing.T) {
	r, b := newReader(t)
	WithMaxCampaigns(5)(r)
	for i := 0; i < 3; i++ {
		b.Seed(owner, eth("1"), eth("0"), b.Now(), b.Now().Add(time.Hour), true)
	}
	b.CountOverride = new(big.Int).Lsh(big.NewInt(1), 62)

	views := r.GetAllCampaigns(context.Background())
	if len(views) != 3 {
		t.Fatalf("got %d campaigns, want the 3 that exist", len(views))
	}
	if b.Calls > 1+5 {
		t.Fatalf("made %d calls, want at most one per capped id plus the count", b.Calls)
	}

	b.CountOverride = new(big.Int).Lsh(big.NewInt(1), 200)
	if views := r.GetAllCampaigns(context.Background()); len(views) != 0 {
		t.Fatalf("count beyond uint64 should give an empty list, got %d", len(views))
	}
}

func TestGetMyPledge(t *testing.T) {
	r, b := newReader(t)
	id := b.Seed(owner, eth("1"), eth("0.2"), b.Now(), b.Now().Add(time.Hour), true)
	b.SetPledge(id, backer, eth("0.2"))
	ctx := context.Background()

	if got := r.GetMyPledge(ctx, id, backer); got.Cmp(eth("0.2")) != 0 {
		t.Fatalf("pledge = %s", got)
	}
	calls := b.Calls
	if got := r.GetMyPledge(ctx, id, common.Address{}); got.Sign() != 0 || b.Calls != calls {
		t.Fatal("zero backer should return 0 without a call")
	}
	b.CallErr = errors.New("boom")
	if got := r.GetMyPledge(ctx, id, backer); got.Sign() != 0 {
		t.Fatalf("failed read should return 0, got %s", got)
	}
}

func TestViewerState(t *testing.T) {
	r, b := newReader(t)
	now := b.Now()
	id := b.Seed(owner, eth("1"), eth("0.6"), now, now.Add(7*24*time.Hour), true)
	b.SetPledge(id, backer, eth("0.2"))
	b.Advance(8 * 24 * time.Hour)
	ctx := context.Background()

	vs, ok := r.ViewerState(ctx, id, backer)
	if !ok || !vs.CanRefund || vs.CanWithdraw || vs.Status != StatusFailedUnrefunded {
		t.Fatalf("backer view = %+v", vs)
	}
	vs, ok = r.ViewerState(ctx, id, owner)
	if !ok || vs.CanRefund || vs.CanWithdraw {
		t.Fatalf("owner view = %+v", vs)
	}
}

func TestLimits(t *testing.T) {
	r, b := newReader(t)
	b.MaxGoal = eth("2")
	b.MaxPledge = eth("1")
	b.ModerationRequired = true

	l, ok := r.Limits(context.Background())
	if !ok || l.MaxGoal.Cmp(eth("2")) != 0 || l.MaxPledge.Cmp(eth("1")) != 0 || !l.ModerationRequired {
		t.Fatalf("limits = %+v", l)
	}
}
