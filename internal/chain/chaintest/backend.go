// Package chaintest provides an in-memory crowdfund contract that satisfies
// chain.Backend. Calls and transactions go through the real ABI encoding and
// transactions are verified against their signatures.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/crisramb665/FundChain/internal/chain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type campaign struct {
	owner     common.Address
	token     common.Address
	goal      *big.Int
	pledged   *big.Int
	startAt   uint64
	endAt     uint64
	claimed   bool
	approved  bool
	maxPledge *big.Int
}

// Backend is a single-contract chain held in memory.
type Backend struct {
	mu sync.Mutex

	abi      abi.ABI
	address  common.Address
	chainID  *big.Int
	now      time.Time
	admin    common.Address
	block    uint64
	nonces   map[common.Address]uint64
	receipts map[common.Hash]*types.Receipt
	logs     []types.Log

	campaigns []*campaign
	pledges   map[uint64]map[common.Address]*big.Int

	ModerationRequired bool
	MaxGoal            *big.Int
	MaxPledge          *big.Int

	// Fault injection.
	CallErr       error           // every CallContract fails
	CountOverride *big.Int        // getCampaignsCount returns this instead
	FailCampaigns map[uint64]bool // getCampaign(id) fails for these ids
	SendErr       error           // SendTransaction fails
	HoldReceipts  bool            // receipts are never returned
	RevertOnChain bool            // transactions pass estimation but revert when mined
	DropEvents    bool            // confirmed receipts carry no logs

	Calls  int
	Sends  int
	Closes int
}

// New creates a backend for the contract at address.
func New(address common.Address, chainID uint64, admin common.Address) *Backend {
	return &Backend{
		abi:           chain.MustParseABI(),
		address:       address,
		chainID:       new(big.Int).SetUint64(chainID),
		now:           time.Unix(1_700_000_000, 0),
		admin:         admin,
		block:         1,
		nonces:        make(map[common.Address]uint64),
		receipts:      make(map[common.Hash]*types.Receipt),
		pledges:       make(map[uint64]map[common.Address]*big.Int),
		FailCampaigns: make(map[uint64]bool),
		MaxGoal:       new(big.Int),
		MaxPledge:     new(big.Int),
	}
}

// Dialer returns a chain.Dialer that always yields this backend.
func (b *Backend) Dialer() chain.Dialer {
	return func(ctx context.Context, rawurl string) (chain.Backend, error) {
		return b, nil
	}
}

// Now returns the chain clock.
func (b *Backend) Now() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now
}

// Advance moves the chain clock forward.
func (b *Backend) Advance(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = b.now.Add(d)
}

// Seed inserts a campaign directly and returns its id.
func (b *Backend) Seed(owner common.Address, goal, pledged *big.Int, startAt, endAt time.Time, approved bool) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uint64(len(b.campaigns))
	b.campaigns = append(b.campaigns, &campaign{
		owner:     owner,
		goal:      new(big.Int).Set(goal),
		pledged:   new(big.Int).Set(pledged),
		startAt:   uint64(startAt.Unix()),
		endAt:     uint64(endAt.Unix()),
		approved:  approved,
		maxPledge: new(big.Int),
	})
	return id
}

// SetPledge records a backer's cumulative pledge without a transaction.
func (b *Backend) SetPledge(id uint64, backer common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pledges[id] == nil {
		b.pledges[id] = make(map[common.Address]*big.Int)
	}
	b.pledges[id][backer] = new(big.Int).Set(amount)
}

func (b *Backend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Calls++
	if b.CallErr != nil {
		return nil, b.CallErr
	}
	if call.To == nil || *call.To != b.address {
		return nil, nil
	}
	method, args, err := b.decode(call.Data)
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case chain.MethodCampaignsCount:
		if b.CountOverride != nil {
			return method.Outputs.Pack(b.CountOverride)
		}
		return method.Outputs.Pack(big.NewInt(int64(len(b.campaigns))))
	case chain.MethodGetCampaign:
		id := args[0].(*big.Int).Uint64()
		if b.FailCampaigns[id] {
			return nil, fmt.Errorf("backend: getCampaign(%d) unavailable", id)
		}
		c, err := b.campaign(id)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(c.owner, c.token, c.goal, c.pledged,
			new(big.Int).SetUint64(c.startAt), new(big.Int).SetUint64(c.endAt),
			c.claimed, c.approved, c.maxPledge)
	case chain.MethodGetMyPledge:
		return method.Outputs.Pack(b.pledgeOf(args[0].(*big.Int).Uint64(), args[1].(common.Address)))
	case chain.MethodModerationRequired:
		return method.Outputs.Pack(b.ModerationRequired)
	case chain.MethodMaxGoal:
		return method.Outputs.Pack(b.MaxGoal)
	case chain.MethodMaxPledge:
		return method.Outputs.Pack(b.MaxPledge)
	}
	return nil, fmt.Errorf("backend: %s is not a view method", method.Name)
}

func (b *Backend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []types.Log
	for _, l := range b.logs {
		if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (b *Backend) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("backend: subscriptions not supported")
}

func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.block, nil
}

func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[account], nil
}

func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *Backend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.execute(msg.From, msg.Data, msg.Value, false); err != nil {
		return 0, err
	}
	return 150_000, nil
}

func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Sends++
	if b.SendErr != nil {
		return b.SendErr
	}
	if tx.ChainId().Cmp(b.chainID) != 0 {
		return fmt.Errorf("invalid chain id %s", tx.ChainId())
	}
	from, err := types.Sender(types.LatestSignerForChainID(b.chainID), tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if tx.Nonce() != b.nonces[from] {
		return fmt.Errorf("nonce too low: have %d, want %d", tx.Nonce(), b.nonces[from])
	}
	b.nonces[from]++
	b.block++

	receipt := &types.Receipt{
		Type:        tx.Type(),
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		GasUsed:     tx.Gas(),
		BlockNumber: new(big.Int).SetUint64(b.block),
	}
	logs, err := b.execute(from, tx.Data(), tx.Value(), !b.RevertOnChain)
	if err != nil || b.RevertOnChain {
		logs = nil
		receipt.Status = types.ReceiptStatusFailed
	}
	for i, l := range logs {
		l.TxHash = tx.Hash()
		l.BlockNumber = b.block
		l.Index = uint(len(b.logs) + i)
	}
	for _, l := range logs {
		b.logs = append(b.logs, *l)
	}
	if !b.DropEvents {
		receipt.Logs = logs
	}
	b.receipts[tx.Hash()] = receipt
	return nil
}

func (b *Backend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.HoldReceipts {
		return nil, ethereum.NotFound
	}
	r, ok := b.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (b *Backend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	if account == b.address {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Closes++
}

func (b *Backend) decode(data []byte) (*abi.Method, []interface{}, error) {
	if len(data) < 4 {
		return nil, nil, errors.New("backend: short calldata")
	}
	method, err := b.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, err
	}
	return method, args, nil
}

func (b *Backend) campaign(id uint64) (*campaign, error) {
	if id >= uint64(len(b.campaigns)) {
		return nil, revert("campaign does not exist")
	}
	return b.campaigns[id], nil
}

func (b *Backend) pledgeOf(id uint64, backer common.Address) *big.Int {
	if p, ok := b.pledges[id][backer]; ok {
		return new(big.Int).Set(p)
	}
	return new(big.Int)
}

func revert(reason string) error {
	return fmt.Errorf("execution reverted: %s", reason)
}

func (b *Backend) event(name string, topics []common.Hash, data ...interface{}) *types.Log {
	ev := b.abi.Events[name]
	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		panic(err)
	}
	return &types.Log{
		Address: b.address,
		Topics:  append([]common.Hash{ev.ID}, topics...),
		Data:    packed,
	}
}

func idTopic(id uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(id))
}

func addrTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

// execute runs a state-changing call. With apply false only the checks run.
func (b *Backend) execute(from common.Address, data []byte, value *big.Int, apply bool) ([]*types.Log, error) {
	method, args, err := b.decode(data)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = new(big.Int)
	}
	now := uint64(b.now.Unix())

	switch method.Name {
	case chain.MethodCreateCampaign:
		goal, duration := args[0].(*big.Int), args[1].(*big.Int)
		token, maxPledge := args[2].(common.Address), args[3].(*big.Int)
		if goal.Sign() <= 0 {
			return nil, revert("goal must be positive")
		}
		if b.MaxGoal.Sign() > 0 && goal.Cmp(b.MaxGoal) > 0 {
			return nil, revert("goal exceeds MAX_GOAL")
		}
		if duration.Sign() <= 0 {
			return nil, revert("duration must be positive")
		}
		if !apply {
			return nil, nil
		}
		id := uint64(len(b.campaigns))
		c := &campaign{
			owner:     from,
			token:     token,
			goal:      new(big.Int).Set(goal),
			pledged:   new(big.Int),
			startAt:   now,
			endAt:     now + duration.Uint64(),
			approved:  !b.ModerationRequired,
			maxPledge: new(big.Int).Set(maxPledge),
		}
		b.campaigns = append(b.campaigns, c)
		return []*types.Log{b.event(chain.EventCampaignCreated, []common.Hash{idTopic(id), addrTopic(from)},
			token, goal, new(big.Int).SetUint64(c.startAt), new(big.Int).SetUint64(c.endAt), maxPledge)}, nil

	case chain.MethodApproveCampaign:
		id := args[0].(*big.Int).Uint64()
		c, err := b.campaign(id)
		if err != nil {
			return nil, err
		}
		if from != b.admin {
			return nil, revert("only moderator")
		}
		if c.approved {
			return nil, revert("already approved")
		}
		if !apply {
			return nil, nil
		}
		c.approved = true
		return []*types.Log{b.event(chain.EventCampaignApproved, []common.Hash{idTopic(id), addrTopic(from)})}, nil

	case chain.MethodPledge, chain.MethodPledgeERC20:
		id := args[0].(*big.Int).Uint64()
		c, err := b.campaign(id)
		if err != nil {
			return nil, err
		}
		amount := value
		if method.Name == chain.MethodPledgeERC20 {
			amount = args[1].(*big.Int)
			if c.token == (common.Address{}) {
				return nil, revert("campaign takes native asset")
			}
		} else if c.token != (common.Address{}) {
			return nil, revert("campaign takes ERC20")
		}
		if !c.approved {
			return nil, revert("not approved")
		}
		if now >= c.endAt {
			return nil, revert("campaign ended")
		}
		if amount.Sign() <= 0 {
			return nil, revert("amount must be positive")
		}
		total := new(big.Int).Add(b.pledgeOf(id, from), amount)
		if c.maxPledge.Sign() > 0 && total.Cmp(c.maxPledge) > 0 {
			return nil, revert("exceeds max pledge")
		}
		if !apply {
			return nil, nil
		}
		c.pledged.Add(c.pledged, amount)
		if b.pledges[id] == nil {
			b.pledges[id] = make(map[common.Address]*big.Int)
		}
		b.pledges[id][from] = total
		return []*types.Log{b.event(chain.EventPledged, []common.Hash{idTopic(id), addrTopic(from)}, amount)}, nil

	case chain.MethodWithdraw:
		id := args[0].(*big.Int).Uint64()
		c, err := b.campaign(id)
		if err != nil {
			return nil, err
		}
		if from != c.owner {
			return nil, revert("not owner")
		}
		if now < c.endAt || c.pledged.Cmp(c.goal) < 0 || c.claimed {
			return nil, revert("cannot withdraw")
		}
		if !apply {
			return nil, nil
		}
		c.claimed = true
		return []*types.Log{b.event(chain.EventWithdrawn, []common.Hash{idTopic(id), addrTopic(from)}, c.pledged)}, nil

	case chain.MethodRefund:
		id := args[0].(*big.Int).Uint64()
		c, err := b.campaign(id)
		if err != nil {
			return nil, err
		}
		p := b.pledgeOf(id, from)
		if now < c.endAt || c.pledged.Cmp(c.goal) >= 0 || p.Sign() == 0 {
			return nil, revert("cannot refund")
		}
		if !apply {
			return nil, nil
		}
		b.pledges[id][from] = new(big.Int)
		return []*types.Log{b.event(chain.EventRefunded, []common.Hash{idTopic(id), addrTopic(from)}, p)}, nil

	case chain.MethodCancelCampaign:
		id := args[0].(*big.Int).Uint64()
		c, err := b.campaign(id)
		if err != nil {
			return nil, err
		}
		if from != c.owner {
			return nil, revert("not owner")
		}
		if now >= c.endAt || c.claimed {
			return nil, revert("campaign ended")
		}
		if !apply {
			return nil, nil
		}
		c.endAt = now
		return []*types.Log{b.event(chain.EventCampaignCancelled, []common.Hash{idTopic(id), addrTopic(from)})}, nil
	}
	return nil, fmt.Errorf("backend: %s is not a transaction method", method.Name)
}
