// Package network gates write operations on the connected wallet being on the
// configured chain, and drives the switch-or-add flow when it is not.
package network

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/crisramb665/FundChain/internal/config"
	"github.com/crisramb665/FundChain/internal/errs"
	"github.com/crisramb665/FundChain/internal/logger"
	"github.com/crisramb665/FundChain/internal/session"
	"github.com/crisramb665/FundChain/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Params is the required network.
type Params struct {
	ChainID        uint64 `json:"chainId"`
	ChainIDHex     string `json:"chainIdHex"`
	Name           string `json:"name"`
	RPCURL         string `json:"rpcUrl"`
	ExplorerURL    string `json:"explorerUrl"`
	NativeSymbol   string `json:"nativeSymbol"`
	NativeDecimals uint8  `json:"nativeDecimals"`
}

func ParamsFromConfig(cfg config.NetworkConfig) Params {
	return Params{
		ChainID:        cfg.ChainID,
		ChainIDHex:     cfg.ChainIDHex(),
		Name:           cfg.Name,
		RPCURL:         cfg.RPCURL,
		ExplorerURL:    strings.TrimRight(cfg.ExplorerURL, "/"),
		NativeSymbol:   cfg.NativeSymbol,
		NativeDecimals: cfg.NativeDecimals,
	}
}

// ChainParams is the payload used to register the network with a wallet.
func (p Params) ChainParams() wallet.ChainParams {
	cp := wallet.ChainParams{
		ChainID:   hexutil.Uint64(p.ChainID),
		ChainName: p.Name,
		NativeCurrency: wallet.NativeCurrency{
			Name:     p.NativeSymbol,
			Symbol:   p.NativeSymbol,
			Decimals: p.NativeDecimals,
		},
		RPCURLs: []string{p.RPCURL},
	}
	if p.ExplorerURL != "" {
		cp.BlockExplorerURLs = []string{p.ExplorerURL}
	}
	return cp
}

// TxURL links a transaction on the block explorer.
func (p Params) TxURL(hash string) string {
	return fmt.Sprintf("%s/tx/%s", p.ExplorerURL, hash)
}

// AddressURL links an account or contract on the block explorer.
func (p Params) AddressURL(addr common.Address) string {
	return fmt.Sprintf("%s/address/%s", p.ExplorerURL, addr.Hex())
}

// ShortenAddress renders 0x1234...abcd.
func ShortenAddress(addr common.Address) string {
	h := addr.Hex()
	return h[:6] + "..." + h[len(h)-4:]
}

// Guard tracks (account, chainId) through a session and the wallet's
// notifications.
type Guard struct {
	params   Params
	sess     *session.Session
	provider wallet.Provider
}

// NewGuard creates a guard. provider may be nil when no wallet is injected.
func NewGuard(params Params, sess *session.Session, provider wallet.Provider) *Guard {
	return &Guard{params: params, sess: sess, provider: provider}
}

func (g *Guard) Params() Params { return g.params }

func (g *Guard) Session() *session.Session { return g.sess }

func (g *Guard) HasProvider() bool { return g.provider != nil }

func (g *Guard) IsCorrectNetwork() bool {
	return g.sess.ChainID() == g.params.ChainID
}

// Require fails with NotConnected or WrongNetwork, in that order. It performs
// no I/O.
func (g *Guard) Require() error {
	if _, ok := g.sess.Account(); !ok {
		return errs.ErrNotConnected
	}
	if !g.IsCorrectNetwork() {
		return errs.New(errs.WrongNetwork, fmt.Sprintf("please switch to %s", g.params.Name))
	}
	return nil
}

// Connect asks the wallet for an account, opens the session and moves the
// wallet onto the required network if needed. The session stays open when
// only the network step fails.
func (g *Guard) Connect(ctx context.Context) (session.State, error) {
	if g.provider == nil {
		return g.sess.Snapshot(), errs.New(errs.NoWalletProvider, "no wallet provider found, install a wallet to continue")
	}

	accounts, err := g.provider.RequestAccounts(ctx)
	if err != nil {
		return g.sess.Snapshot(), connectError(err)
	}
	if len(accounts) == 0 {
		return g.sess.Snapshot(), errs.New(errs.NotConnected, "wallet returned no accounts")
	}
	chainID, err := g.provider.ChainID(ctx)
	if err != nil {
		return g.sess.Snapshot(), errs.Wrap(errs.NetworkUnreachable, err, "failed to read wallet network")
	}
	g.sess.Open(accounts[0], chainID)
	logger.Info("Wallet connected: %s on chain %d", accounts[0].Hex(), chainID)

	if chainID != g.params.ChainID {
		if err := g.SwitchNetwork(ctx); err != nil {
			logger.Warn("Wallet left on chain %d: %v", chainID, err)
			return g.sess.Snapshot(), err
		}
	}
	return g.sess.Snapshot(), nil
}

func connectError(err error) error {
	switch errs.KindOf(wallet.Classify(err)) {
	case errs.UserRejected:
		return errs.Wrap(errs.UserRejected, err, "wallet connection rejected")
	case errs.PendingRequestExists:
		return errs.Wrap(errs.PendingRequestExists, err, "a connection request is already pending, open your wallet to continue")
	}
	return errs.Wrap(errs.NetworkUnreachable, err, "failed to connect wallet")
}

// SwitchNetwork asks the wallet to switch to the required chain, registering
// the chain first when the wallet does not know it.
func (g *Guard) SwitchNetwork(ctx context.Context) error {
	if g.provider == nil {
		return errs.ErrNoWalletProvider
	}
	err := g.provider.SwitchChain(ctx, g.params.ChainID)
	if code, ok := wallet.Code(err); ok && code == wallet.CodeUnknownChain {
		if addErr := g.provider.AddChain(ctx, g.params.ChainParams()); addErr != nil {
			if errors.Is(wallet.Classify(addErr), errs.ErrUserRejected) {
				return errs.Wrap(errs.UserRejected, addErr, fmt.Sprintf("adding %s to the wallet was rejected", g.params.Name))
			}
			return errs.Wrap(errs.WrongNetwork, addErr, fmt.Sprintf("could not add %s to the wallet", g.params.Name))
		}
		err = g.provider.SwitchChain(ctx, g.params.ChainID)
	}
	if err != nil {
		if errors.Is(wallet.Classify(err), errs.ErrUserRejected) {
			return errs.Wrap(errs.UserRejected, err, "network switch rejected")
		}
		if errors.Is(wallet.Classify(err), errs.ErrPendingRequestExists) {
			return errs.Wrap(errs.PendingRequestExists, err, "a network switch request is already pending")
		}
		return errs.Wrap(errs.WrongNetwork, err, fmt.Sprintf("failed to switch to %s", g.params.Name))
	}

	chainID, err := g.provider.ChainID(ctx)
	if err != nil {
		return errs.Wrap(errs.NetworkUnreachable, err, "failed to read wallet network")
	}
	g.sess.SetChainID(chainID)
	if chainID != g.params.ChainID {
		return errs.New(errs.WrongNetwork, fmt.Sprintf("wallet is still on chain %d", chainID))
	}
	return nil
}

// Disconnect clears local state only; the wallet keeps its authorization.
func (g *Guard) Disconnect() {
	g.sess.Close()
	logger.Info("Wallet disconnected locally")
}

// Restore opens a session for an account the wallet already authorized,
// without prompting.
func (g *Guard) Restore(ctx context.Context) error {
	if g.provider == nil {
		return nil
	}
	accounts, err := g.provider.Accounts(ctx)
	if err != nil {
		return errs.Wrap(errs.NetworkUnreachable, err, "failed to read wallet accounts")
	}
	chainID, err := g.provider.ChainID(ctx)
	if err != nil {
		return errs.Wrap(errs.NetworkUnreachable, err, "failed to read wallet network")
	}
	g.sess.SetChainID(chainID)
	if len(accounts) > 0 {
		g.sess.Open(accounts[0], chainID)
		logger.Info("Restored wallet session for %s", accounts[0].Hex())
	}
	return nil
}

// HandleEvent applies a wallet notification. An empty account list ends the
// session; a new account replaces the current one in an open session.
func (g *Guard) HandleEvent(ev wallet.Event) {
	switch ev.Type {
	case wallet.AccountsChanged:
		if len(ev.Accounts) == 0 {
			if _, ok := g.sess.Account(); ok {
				logger.Info("Wallet revoked access, closing session")
			}
			g.sess.Close()
			return
		}
		g.sess.SetAccount(ev.Accounts[0])
	case wallet.ChainChanged:
		g.sess.SetChainID(ev.ChainID)
		if !g.IsCorrectNetwork() {
			logger.Warn("Wallet switched to chain %d, expected %d", ev.ChainID, g.params.ChainID)
		}
	}
}

// Watch applies wallet events until ctx is done.
func (g *Guard) Watch(ctx context.Context) {
	if g.provider == nil {
		return
	}
	events, cancel := g.provider.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			g.HandleEvent(ev)
		}
	}
}

// Sync polls the wallet for changes it could not push. It never reopens a
// session that was closed locally.
func (g *Guard) Sync(ctx context.Context) error {
	if g.provider == nil {
		return nil
	}
	chainID, err := g.provider.ChainID(ctx)
	if err != nil {
		return errs.Wrap(errs.NetworkUnreachable, err, "failed to read wallet network")
	}
	if chainID != g.sess.ChainID() {
		g.HandleEvent(wallet.Event{Type: wallet.ChainChanged, ChainID: chainID})
	}
	current, ok := g.sess.Account()
	if !ok {
		return nil
	}
	accounts, err := g.provider.Accounts(ctx)
	if err != nil {
		return errs.Wrap(errs.NetworkUnreachable, err, "failed to read wallet accounts")
	}
	if len(accounts) == 0 || accounts[0] != current {
		g.HandleEvent(wallet.Event{Type: wallet.AccountsChanged, Accounts: accounts})
	}
	return nil
}
