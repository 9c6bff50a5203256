package chain_test

import (
	"context"
	"errors"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/crisramb665/FundChain/internal/chain"
	"github.com/crisramb665/FundChain/internal/chain/chaintest"
	"github.com/crisramb665/FundChain/internal/config"
	"github.com/crisramb665/FundChain/internal/errs"
	"github.com/crisramb665/FundChain/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var contractAddr = common.HexToAddress("0x00000000000000000000000000000000000C0FFE")

func network() config.NetworkConfig {
	return config.NetworkConfig{
		ChainID:         534351,
		RPCURL:          "http://fake",
		ContractAddress: contractAddr.Hex(),
		NativeDecimals:  18,
		DeployBlock:     1,
	}
}

func setup(t *testing.T) (*chain.Client, *chaintest.Backend, *wallet.KeyProvider) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	w := wallet.NewKeyProviderFromKey(key, 534351)
	if _, err := w.RequestAccounts(context.Background()); err != nil {
		t.Fatal(err)
	}
	b := chaintest.New(contractAddr, 534351, w.Address())
	return chain.NewClient(network(), w, chain.WithDialer(b.Dialer())), b, w
}

func TestReaderViews(t *testing.T) {
	c, b, _ := setup(t)
	b.MaxGoal = big.NewInt(5000)
	b.ModerationRequired = true
	owner := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	now := b.Now()
	b.Seed(owner, big.NewInt(100), big.NewInt(40), now, now.Add(time.Hour), true)
	b.SetPledge(0, owner, big.NewInt(40))

	ctx := context.Background()
	r, err := c.Reader(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	n, err := r.CampaignsCount(ctx)
	if err != nil || n != 1 {
		t.Fatalf("count = %d, %v", n, err)
	}
	d, err := r.Campaign(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if d.Owner != owner || d.Goal.Int64() != 100 || d.Pledged.Int64() != 40 || !d.Approved {
		t.Fatalf("campaign = %+v", d)
	}
	mine, err := r.MyPledge(ctx, 0, owner)
	if err != nil || mine.Int64() != 40 {
		t.Fatalf("my pledge = %v, %v", mine, err)
	}
	if mod, err := r.ModerationRequired(ctx); err != nil || !mod {
		t.Fatalf("moderation = %v, %v", mod, err)
	}
	if limit, err := r.MaxGoal(ctx); err != nil || limit.Int64() != 5000 {
		t.Fatalf("max goal = %v, %v", limit, err)
	}
}

func TestWriterRequiresAuthorizedAccount(t *testing.T) {
	c, _, _ := setup(t)
	stranger := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	if _, err := c.Writer(context.Background(), stranger); errs.KindOf(err) != errs.NotConnected {
		t.Fatalf("err = %v", err)
	}

	readOnly := chain.NewClient(network(), nil)
	if readOnly.HasWallet() {
		t.Fatal("read-only client reports a wallet")
	}
	if _, err := readOnly.Writer(context.Background(), stranger); errs.KindOf(err) != errs.NoWalletProvider {
		t.Fatalf("err = %v", err)
	}
}

func TestSubmitAndParseCreatedEvent(t *testing.T) {
	c, b, w := setup(t)
	ctx := context.Background()

	wr, err := c.Writer(ctx, w.Address())
	if err != nil {
		t.Fatal(err)
	}
	defer wr.Close()

	p, err := wr.Submit(ctx, chain.MethodCreateCampaign, nil, big.NewInt(1000), big.NewInt(86400), common.Address{}, big.NewInt(10))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if p.Method() != chain.MethodCreateCampaign {
		t.Fatalf("method = %s", p.Method())
	}
	receipt, err := p.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}

	id, err := c.Contract().CreatedCampaignID(receipt)
	if err != nil || id != 0 {
		t.Fatalf("campaign id = %d, %v", id, err)
	}

	ev, err := c.Contract().ParseEvent(*receipt.Logs[0])
	if err != nil {
		t.Fatal(err)
	}
	if ev.Name != chain.EventCampaignCreated || ev.Account != w.Address() || ev.Amount.Int64() != 1000 {
		t.Fatalf("event = %+v", ev)
	}
	if mp, _ := ev.Fields["maxPledge"].(*big.Int); mp == nil || mp.Int64() != 10 {
		t.Fatalf("fields = %v", ev.Fields)
	}

	r, err := c.Reader(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	head, _ := r.CurrentBlock(ctx)
	logs, err := r.Logs(ctx, 1, head)
	if err != nil || len(logs) != 1 {
		t.Fatalf("logs = %d, %v", len(logs), err)
	}
	if b.Sends != 1 {
		t.Fatalf("sends = %d", b.Sends)
	}
}

func TestCreatedCampaignIDMissing(t *testing.T) {
	c, _, _ := setup(t)
	for _, r := range []*types.Receipt{nil, {}, {Logs: []*types.Log{{Address: common.HexToAddress("0x01")}}}} {
		if _, err := c.Contract().CreatedCampaignID(r); errs.KindOf(err) != errs.EventParseFailure {
			t.Fatalf("err = %v", err)
		}
	}
}

func TestSubmitErrors(t *testing.T) {
	c, b, w := setup(t)
	ctx := context.Background()
	wr, err := c.Writer(ctx, w.Address())
	if err != nil {
		t.Fatal(err)
	}
	defer wr.Close()

	_, err = wr.Submit(ctx, chain.MethodWithdraw, nil, big.NewInt(7))
	if errs.KindOf(err) != errs.SubmissionFailed {
		t.Fatalf("estimation revert = %v", err)
	}

	now := b.Now()
	b.Seed(w.Address(), big.NewInt(10), big.NewInt(0), now, now.Add(time.Hour), true)
	b.SendErr = &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	_, err = wr.Submit(ctx, chain.MethodPledge, big.NewInt(1), big.NewInt(0))
	if errs.KindOf(err) != errs.NetworkUnreachable {
		t.Fatalf("send failure = %v", err)
	}
}

func TestReaderCallFailure(t *testing.T) {
	c, b, _ := setup(t)
	b.CallErr = errors.New("execution reverted")
	r, err := c.Reader(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if _, err := r.CampaignsCount(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
