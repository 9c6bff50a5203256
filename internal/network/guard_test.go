package network

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/crisramb665/FundChain/internal/config"
	"github.com/crisramb665/FundChain/internal/errs"
	"github.com/crisramb665/FundChain/internal/session"
	"github.com/crisramb665/FundChain/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var scroll = config.NetworkConfig{
	ChainID:        534351,
	Name:           "Scroll Alpha Testnet",
	RPCURL:         "https://alpha-rpc.scroll.io/l2",
	ExplorerURL:    "https://blockscout.scroll.io/",
	NativeSymbol:   "ETH",
	NativeDecimals: 18,
}

// scriptedProvider returns canned errors in front of a real key wallet.
type scriptedProvider struct {
	*wallet.KeyProvider
	requestErr error
	switchErr  error
	addErr     error
	switches   int
	adds       int
}

func (p *scriptedProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if p.requestErr != nil {
		return nil, p.requestErr
	}
	return p.KeyProvider.RequestAccounts(ctx)
}

func (p *scriptedProvider) SwitchChain(ctx context.Context, id uint64) error {
	p.switches++
	if p.switchErr != nil {
		return p.switchErr
	}
	return p.KeyProvider.SwitchChain(ctx, id)
}

func (p *scriptedProvider) AddChain(ctx context.Context, params wallet.ChainParams) error {
	p.adds++
	if p.addErr != nil {
		return p.addErr
	}
	return p.KeyProvider.AddChain(ctx, params)
}

func newProvider(t *testing.T, chainID uint64) *scriptedProvider {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return &scriptedProvider{KeyProvider: wallet.NewKeyProviderFromKey(key, chainID)}
}

func TestConnectOnCorrectNetwork(t *testing.T) {
	p := newProvider(t, scroll.ChainID)
	g := NewGuard(ParamsFromConfig(scroll), session.New(), p)

	st, err := g.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !st.Connected || st.Account != p.Address() || !g.IsCorrectNetwork() {
		t.Fatalf("state = %+v", st)
	}
	if p.switches != 0 {
		t.Fatalf("unexpected switch attempts: %d", p.switches)
	}
	if err := g.Require(); err != nil {
		t.Fatalf("Require: %v", err)
	}
}

func TestConnectAddsUnknownNetwork(t *testing.T) {
	p := newProvider(t, 1)
	g := NewGuard(ParamsFromConfig(scroll), session.New(), p)

	if _, err := g.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if p.adds != 1 || p.switches != 2 {
		t.Fatalf("adds=%d switches=%d", p.adds, p.switches)
	}
	if !g.IsCorrectNetwork() {
		t.Fatal("expected correct network after add + switch")
	}
}

func TestConnectFailures(t *testing.T) {
	tests := []struct {
		name      string
		chainID   uint64
		setup     func(*scriptedProvider)
		want      error
		connected bool
	}{
		{
			name:    "user rejected",
			chainID: scroll.ChainID,
			setup: func(p *scriptedProvider) {
				p.requestErr = &wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "User rejected the request."}
			},
			want: errs.ErrUserRejected,
		},
		{
			name:    "request pending",
			chainID: scroll.ChainID,
			setup: func(p *scriptedProvider) {
				p.requestErr = &wallet.ProviderError{Code: wallet.CodeRequestPending, Message: "Request already pending"}
			},
			want: errs.ErrPendingRequestExists,
		},
		{
			name:    "switch rejected",
			chainID: 1,
			setup: func(p *scriptedProvider) {
				p.switchErr = &wallet.ProviderError{Code: wallet.CodeUserRejected, Message: "User rejected the request."}
			},
			want:      errs.ErrUserRejected,
			connected: true,
		},
		{
			name:    "add network failed",
			chainID: 1,
			setup: func(p *scriptedProvider) {
				p.addErr = &wallet.ProviderError{Code: -32603, Message: "Internal error"}
			},
			want:      errs.ErrWrongNetwork,
			connected: true,
		},
	}

	messages := make(map[string]bool)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProvider(t, tt.chainID)
			tt.setup(p)
			g := NewGuard(ParamsFromConfig(scroll), session.New(), p)

			st, err := g.Connect(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("Connect error = %v, want %v", err, tt.want)
			}
			if st.Connected != tt.connected {
				t.Fatalf("connected = %v, want %v", st.Connected, tt.connected)
			}
			msg := errs.MessageOf(err)
			if messages[msg] {
				t.Fatalf("message %q is not distinct", msg)
			}
			messages[msg] = true
		})
	}
}

func TestConnectWithoutProvider(t *testing.T) {
	g := NewGuard(ParamsFromConfig(scroll), session.New(), nil)
	if _, err := g.Connect(context.Background()); !errors.Is(err, errs.ErrNoWalletProvider) {
		t.Fatalf("error = %v", err)
	}
}

func TestRequireOrder(t *testing.T) {
	sess := session.New()
	g := NewGuard(ParamsFromConfig(scroll), sess, nil)

	if err := g.Require(); !errors.Is(err, errs.ErrNotConnected) {
		t.Fatalf("disconnected: %v", err)
	}
	sess.Open(common.HexToAddress("0x01"), 1)
	if err := g.Require(); !errors.Is(err, errs.ErrWrongNetwork) {
		t.Fatalf("wrong network: %v", err)
	}
}

func TestDisconnectIsLocal(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t, scroll.ChainID)
	g := NewGuard(ParamsFromConfig(scroll), session.New(), p)
	if _, err := g.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	g.Disconnect()
	if _, ok := g.Session().Account(); ok {
		t.Fatal("session still open")
	}
	accounts, _ := p.Accounts(ctx)
	if len(accounts) != 1 {
		t.Fatal("wallet authorization should survive a local disconnect")
	}
	if err := g.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := g.Session().Account(); ok {
		t.Fatal("Sync must not reopen a locally closed session")
	}
}

func TestWatchAppliesWalletEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newProvider(t, scroll.ChainID)
	g := NewGuard(ParamsFromConfig(scroll), session.New(), p)
	if _, err := g.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		g.Watch(ctx)
		close(done)
	}()

	// Subscribe happens inside Watch; give it a moment before emitting.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := p.RequestAccounts(ctx); err != nil {
			t.Fatal(err)
		}
		p.Revoke()
		if _, ok := g.Session().Account(); !ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, ok := g.Session().Account(); ok {
		t.Fatal("revocation did not close the session")
	}
	cancel()
	<-done
}

func TestHandleChainChanged(t *testing.T) {
	sess := session.New()
	g := NewGuard(ParamsFromConfig(scroll), sess, nil)
	sess.Open(common.HexToAddress("0x01"), scroll.ChainID)

	g.HandleEvent(wallet.Event{Type: wallet.ChainChanged, ChainID: 5})
	if g.IsCorrectNetwork() {
		t.Fatal("expected wrong network")
	}
	g.HandleEvent(wallet.Event{Type: wallet.ChainChanged, ChainID: scroll.ChainID})
	if !g.IsCorrectNetwork() {
		t.Fatal("expected correct network")
	}
}

func TestExplorerLinks(t *testing.T) {
	p := ParamsFromConfig(scroll)
	if got := p.TxURL("0xabc"); got != "https://blockscout.scroll.io/tx/0xabc" {
		t.Errorf("TxURL = %s", got)
	}
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	if got := p.AddressURL(addr); got != "https://blockscout.scroll.io/address/"+addr.Hex() {
		t.Errorf("AddressURL = %s", got)
	}
	if got := ShortenAddress(addr); strings.ToLower(got) != "0x0000...00aa" {
		t.Errorf("ShortenAddress = %s", got)
	}
	if p.ChainIDHex != "0x8274f" {
		t.Errorf("chain id hex = %s", p.ChainIDHex)
	}
}
