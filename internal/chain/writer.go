package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/crisramb665/FundChain/internal/errs"
	"github.com/crisramb665/FundChain/internal/logger"
	"github.com/crisramb665/FundChain/internal/wallet"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Writer is a signing connection bound to one authorized account. It is
// created per operation and closed afterwards.
type Writer struct {
	backend  Backend
	contract *Contract
	wallet   Wallet
	from     common.Address
	chainID  *big.Int
}

func (w *Writer) From() common.Address { return w.from }

func (w *Writer) Close() { w.backend.Close() }

// Submit packs, signs and broadcasts a contract call. A returned PendingTx has
// been accepted by the node; it cannot be withdrawn.
func (w *Writer) Submit(ctx context.Context, method string, value *big.Int, args ...interface{}) (*PendingTx, error) {
	parsed := w.contract.ABI()
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = new(big.Int)
	}
	to := w.contract.Address()

	nonce, err := w.backend.PendingNonceAt(ctx, w.from)
	if err != nil {
		return nil, classify(err, errs.NetworkUnreachable)
	}
	gasPrice, err := w.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, classify(err, errs.NetworkUnreachable)
	}
	gas, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  w.from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, classify(err, errs.SubmissionFailed)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	signed, err := w.wallet.SignTx(ctx, w.from, tx, w.chainID)
	if err != nil {
		return nil, classify(wallet.Classify(err), errs.SubmissionFailed)
	}
	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return nil, classify(err, errs.SubmissionFailed)
	}

	logger.Info("Submitted %s from %s: %s", method, w.from.Hex(), signed.Hash().Hex())
	return &PendingTx{tx: signed, backend: w.backend, method: method}, nil
}

// PendingTx is a transaction accepted by the node and awaiting inclusion.
type PendingTx struct {
	tx      *types.Transaction
	backend bind.DeployBackend
	method  string
}

func (p *PendingTx) Hash() common.Hash { return p.tx.Hash() }

func (p *PendingTx) Method() string { return p.method }

// Wait blocks until the transaction is mined. A reverted transaction returns
// its receipt together with a SubmissionFailed error.
func (p *PendingTx) Wait(ctx context.Context) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, p.backend, p.tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, errs.Wrap(errs.NetworkUnreachable, err,
				"stopped waiting for confirmation; the transaction may still be mined")
		}
		return nil, classify(err, errs.NetworkUnreachable)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, errs.New(errs.SubmissionFailed, "transaction reverted")
	}
	return receipt, nil
}
