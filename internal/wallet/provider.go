// Package wallet models the injected wallet the core signs through: account
// authorization, chain switching and transaction signing, with EIP-1193
// error codes.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/crisramb665/FundChain/internal/errs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// EIP-1193 / MetaMask provider error codes.
const (
	CodeUserRejected   = 4001
	CodeUnauthorized   = 4100
	CodeUnknownChain   = 4902
	CodeRequestPending = -32002
)

// ProviderError is a coded error returned by a wallet.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("wallet error %d: %s", e.Code, e.Message)
}

func (e *ProviderError) ErrorCode() int { return e.Code }

// Code extracts a provider error code from err.
func Code(err error) (int, bool) {
	var coded rpc.Error
	if errors.As(err, &coded) {
		return coded.ErrorCode(), true
	}
	return 0, false
}

// Classify maps wallet error codes onto the error taxonomy. Unknown errors are
// returned unchanged.
func Classify(err error) error {
	code, ok := Code(err)
	if !ok {
		return err
	}
	switch code {
	case CodeUserRejected:
		return errs.Wrap(errs.UserRejected, err, "request rejected in wallet")
	case CodeRequestPending:
		return errs.Wrap(errs.PendingRequestExists, err, "a wallet request is already pending, check your wallet")
	case CodeUnauthorized:
		return errs.Wrap(errs.NotConnected, err, "account not authorized in wallet")
	}
	return err
}

type EventType string

const (
	AccountsChanged EventType = "accountsChanged"
	ChainChanged    EventType = "chainChanged"
)

// Event is a wallet-initiated notification.
type Event struct {
	Type     EventType
	Accounts []common.Address
	ChainID  uint64
}

type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// ChainParams is the wallet_addEthereumChain payload.
type ChainParams struct {
	ChainID           hexutil.Uint64 `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

// Provider is an injected wallet.
type Provider interface {
	// RequestAccounts prompts for authorization.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts returns already authorized accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	AddChain(ctx context.Context, params ChainParams) error
	SignTx(ctx context.Context, from common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
	// Subscribe delivers wallet events until the returned cancel is called.
	Subscribe() (<-chan Event, func())
}
