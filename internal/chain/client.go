package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/url"
	"strings"

	"github.com/crisramb665/FundChain/internal/config"
	"github.com/crisramb665/FundChain/internal/errs"
	"github.com/crisramb665/FundChain/internal/wallet"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the subset of *ethclient.Client the core uses.
type Backend interface {
	ethereum.ContractCaller
	ethereum.LogFilterer
	BlockNumber(ctx context.Context) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	Close()
}

// Wallet is the signing capability a write connection needs.
type Wallet interface {
	Accounts(ctx context.Context) ([]common.Address, error)
	SignTx(ctx context.Context, from common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Dialer opens a backend for an RPC endpoint.
type Dialer func(ctx context.Context, rawurl string) (Backend, error)

// DialEthclient is the default Dialer.
func DialEthclient(ctx context.Context, rawurl string) (Backend, error) {
	return ethclient.DialContext(ctx, rawurl)
}

// Client hands out read and write connections to the crowdfund contract.
// Connections are not cached; each operation gets a fresh one.
type Client struct {
	network  config.NetworkConfig
	contract *Contract
	wallet   Wallet
	dial     Dialer
}

type Option func(*Client)

// WithDialer replaces the backend dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// NewClient creates a client for the configured network. wallet may be nil,
// in which case only reads are possible.
func NewClient(network config.NetworkConfig, w Wallet, opts ...Option) *Client {
	c := &Client{
		network:  network,
		contract: NewContract(network.Contract(), network.DeployBlock),
		wallet:   w,
		dial:     DialEthclient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Contract() *Contract { return c.contract }

func (c *Client) Network() config.NetworkConfig { return c.network }

// HasWallet reports whether a wallet provider was injected.
func (c *Client) HasWallet() bool { return c.wallet != nil }

// Reader returns a read connection. Dialing an HTTP endpoint performs no I/O,
// so an unreachable network surfaces on the first call.
func (c *Client) Reader(ctx context.Context) (*Reader, error) {
	backend, err := c.dial(ctx, c.network.RPCURL)
	if err != nil {
		return nil, errs.Wrap(errs.NetworkUnreachable, err, "failed to connect to RPC endpoint")
	}
	return &Reader{backend: backend, contract: c.contract}, nil
}

// Writer returns a write connection signing as from. from must be an account
// the wallet currently authorizes.
func (c *Client) Writer(ctx context.Context, from common.Address) (*Writer, error) {
	if c.wallet == nil {
		return nil, errs.ErrNoWalletProvider
	}
	accounts, err := c.wallet.Accounts(ctx)
	if err != nil {
		return nil, classify(wallet.Classify(err), errs.NetworkUnreachable)
	}
	authorized := false
	for _, a := range accounts {
		if a == from {
			authorized = true
			break
		}
	}
	if !authorized {
		return nil, errs.ErrNotConnected
	}

	backend, err := c.dial(ctx, c.network.RPCURL)
	if err != nil {
		return nil, errs.Wrap(errs.NetworkUnreachable, err, "failed to connect to RPC endpoint")
	}
	return &Writer{
		backend:  backend,
		contract: c.contract,
		wallet:   c.wallet,
		from:     from,
		chainID:  new(big.Int).SetUint64(c.network.ChainID),
	}, nil
}

// classify keeps an already classified error and otherwise separates
// transport failures from node rejections.
func classify(err error, fallback errs.Kind) error {
	if err == nil {
		return nil
	}
	if errs.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.NetworkUnreachable, err, "")
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return errs.Wrap(errs.NetworkUnreachable, err, "")
	}
	if strings.Contains(strings.ToLower(err.Error()), "connection refused") {
		return errs.Wrap(errs.NetworkUnreachable, err, "")
	}
	return errs.Wrap(fallback, err, "")
}

func noContract(addr common.Address) error {
	return fmt.Errorf("no contract code at %s", addr.Hex())
}
