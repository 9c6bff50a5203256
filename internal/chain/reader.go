package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/crisramb665/FundChain/internal/errs"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// CampaignData is the raw getCampaign tuple.
type CampaignData struct {
	Owner     common.Address
	Token     common.Address
	Goal      *big.Int
	Pledged   *big.Int
	StartAt   *big.Int
	EndAt     *big.Int
	Claimed   bool
	Approved  bool
	MaxPledge *big.Int
}

var errOutOfRange = errors.New("value out of uint64 range")

// Reader is a read-only connection. Close it when done.
type Reader struct {
	backend  Backend
	contract *Contract
}

func (r *Reader) Close() { r.backend.Close() }

func (r *Reader) call(ctx context.Context, out interface{}, method string, args ...interface{}) error {
	parsed := r.contract.ABI()
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return err
	}
	to := r.contract.Address()
	res, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return classify(err, errs.NetworkUnreachable)
	}
	if len(res) == 0 {
		return noContract(to)
	}
	return parsed.UnpackIntoInterface(out, method, res)
}

// CampaignsCount returns getCampaignsCount().
func (r *Reader) CampaignsCount(ctx context.Context) (uint64, error) {
	var count *big.Int
	if err := r.call(ctx, &count, MethodCampaignsCount); err != nil {
		return 0, err
	}
	if !count.IsUint64() {
		return 0, errOutOfRange
	}
	return count.Uint64(), nil
}

// Campaign returns getCampaign(id).
func (r *Reader) Campaign(ctx context.Context, id uint64) (*CampaignData, error) {
	var out CampaignData
	if err := r.call(ctx, &out, MethodGetCampaign, new(big.Int).SetUint64(id)); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyPledge returns getMyPledge(id, backer).
func (r *Reader) MyPledge(ctx context.Context, id uint64, backer common.Address) (*big.Int, error) {
	var out *big.Int
	if err := r.call(ctx, &out, MethodGetMyPledge, new(big.Int).SetUint64(id), backer); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Reader) ModerationRequired(ctx context.Context) (bool, error) {
	var out bool
	err := r.call(ctx, &out, MethodModerationRequired)
	return out, err
}

func (r *Reader) MaxGoal(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	err := r.call(ctx, &out, MethodMaxGoal)
	return out, err
}

func (r *Reader) MaxPledge(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	err := r.call(ctx, &out, MethodMaxPledge)
	return out, err
}

// Logs returns the contract's logs in [from, to].
func (r *Reader) Logs(ctx context.Context, from, to uint64) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{r.contract.Address()},
	}
	return r.backend.FilterLogs(ctx, query)
}

// CurrentBlock returns the latest block number.
func (r *Reader) CurrentBlock(ctx context.Context) (uint64, error) {
	return r.backend.BlockNumber(ctx)
}
