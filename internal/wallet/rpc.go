package wallet

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

// RPCProvider talks to an external wallet over JSON-RPC using the EIP-1193
// method set. It has no push channel; callers poll through Accounts and ChainID.
type RPCProvider struct {
	client *rpc.Client
}

// DialRPCProvider connects to a wallet endpoint.
func DialRPCProvider(ctx context.Context, url string) (*RPCProvider, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial wallet %s", url)
	}
	return &RPCProvider{client: c}, nil
}

// NewRPCProvider wraps an existing client.
func NewRPCProvider(c *rpc.Client) *RPCProvider {
	return &RPCProvider{client: c}
}

func (p *RPCProvider) Close() { p.client.Close() }

func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, errors.Wrap(err, "eth_requestAccounts")
	}
	return accounts, nil
}

func (p *RPCProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := p.client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, errors.Wrap(err, "eth_accounts")
	}
	return accounts, nil
}

func (p *RPCProvider) ChainID(ctx context.Context) (uint64, error) {
	var id hexutil.Uint64
	if err := p.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return 0, errors.Wrap(err, "eth_chainId")
	}
	return uint64(id), nil
}

func (p *RPCProvider) SwitchChain(ctx context.Context, chainID uint64) error {
	param := map[string]string{"chainId": hexutil.EncodeUint64(chainID)}
	if err := p.client.CallContext(ctx, nil, "wallet_switchEthereumChain", param); err != nil {
		return errors.Wrap(err, "wallet_switchEthereumChain")
	}
	return nil
}

func (p *RPCProvider) AddChain(ctx context.Context, params ChainParams) error {
	if err := p.client.CallContext(ctx, nil, "wallet_addEthereumChain", params); err != nil {
		return errors.Wrap(err, "wallet_addEthereumChain")
	}
	return nil
}

type txArgs struct {
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Gas      hexutil.Uint64  `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Nonce    hexutil.Uint64  `json:"nonce"`
	Data     hexutil.Bytes   `json:"data"`
	ChainID  *hexutil.Big    `json:"chainId"`
}

type signResult struct {
	Raw hexutil.Bytes `json:"raw"`
}

// SignTx asks the wallet to sign via eth_signTransaction and decodes the raw
// transaction it returns.
func (p *RPCProvider) SignTx(ctx context.Context, from common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	args := txArgs{
		From:     from,
		To:       tx.To(),
		Gas:      hexutil.Uint64(tx.Gas()),
		GasPrice: (*hexutil.Big)(tx.GasPrice()),
		Value:    (*hexutil.Big)(tx.Value()),
		Nonce:    hexutil.Uint64(tx.Nonce()),
		Data:     tx.Data(),
		ChainID:  (*hexutil.Big)(chainID),
	}
	var res signResult
	if err := p.client.CallContext(ctx, &res, "eth_signTransaction", args); err != nil {
		return nil, errors.Wrap(err, "eth_signTransaction")
	}
	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(res.Raw); err != nil {
		return nil, errors.Wrap(err, "decode signed transaction")
	}
	return signed, nil
}

// Subscribe returns a channel that only closes on cancel.
func (p *RPCProvider) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event)
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }
}
