// Package tx submits the six crowdfund operations through one protocol:
// precondition checks, encoding, submission, confirmation, receipt decoding,
// and a uniform Outcome. Nothing here returns an error or panics across the
// public boundary.
package tx

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/crisramb665/FundChain/internal/amount"
	"github.com/crisramb665/FundChain/internal/campaign"
	"github.com/crisramb665/FundChain/internal/chain"
	"github.com/crisramb665/FundChain/internal/errs"
	"github.com/crisramb665/FundChain/internal/logger"
	"github.com/crisramb665/FundChain/internal/network"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

const (
	secondsPerDay = 24 * 60 * 60

	// MaxDurationDays bounds a campaign window to ten years.
	MaxDurationDays = 3650
)

// Recorder persists journal entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Submitted is reported once a transaction has been accepted by the node.
type Submitted struct {
	OperationID string
	Operation   Operation
	TxHash      string
	Account     string
}

// CreateRequest carries the human-entered campaign parameters.
type CreateRequest struct {
	Goal         string // decimal, in the pledge asset
	DurationDays uint64
	Token        string // empty for the native asset
	MaxPledge    string // empty or "0" for unlimited
}

// Request is one operation to submit.
type Request struct {
	Operation  Operation
	CampaignID uint64
	Amount     string // pledge only
	Create     CreateRequest
}

type Coordinator struct {
	client            *chain.Client
	guard             *network.Guard
	reader            *campaign.StateReader
	recorder          Recorder
	confirmTimeout    time.Duration
	precheckMaxPledge bool
	onSubmitted       func(Submitted)
}

type Option func(*Coordinator)

func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) { c.recorder = r }
}

// WithConfirmTimeout bounds how long Confirm waits. Zero waits for ctx only.
func WithConfirmTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.confirmTimeout = d }
}

// WithMaxPledgeCheck toggles the client-side per-backer cap check.
func WithMaxPledgeCheck(on bool) Option {
	return func(c *Coordinator) { c.precheckMaxPledge = on }
}

// WithSubmittedHook is called after submission, before confirmation.
func WithSubmittedHook(fn func(Submitted)) Option {
	return func(c *Coordinator) { c.onSubmitted = fn }
}

func NewCoordinator(client *chain.Client, guard *network.Guard, reader *campaign.StateReader, opts ...Option) *Coordinator {
	c := &Coordinator{
		client:            client,
		guard:             guard,
		reader:            reader,
		precheckMaxPledge: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Create(ctx context.Context, req CreateRequest) Outcome {
	return c.run(ctx, Request{Operation: OpCreate, Create: req})
}

func (c *Coordinator) Pledge(ctx context.Context, id uint64, amt string) Outcome {
	return c.run(ctx, Request{Operation: OpPledge, CampaignID: id, Amount: amt})
}

func (c *Coordinator) Withdraw(ctx context.Context, id uint64) Outcome {
	return c.run(ctx, Request{Operation: OpWithdraw, CampaignID: id})
}

func (c *Coordinator) Refund(ctx context.Context, id uint64) Outcome {
	return c.run(ctx, Request{Operation: OpRefund, CampaignID: id})
}

func (c *Coordinator) Cancel(ctx context.Context, id uint64) Outcome {
	return c.run(ctx, Request{Operation: OpCancel, CampaignID: id})
}

func (c *Coordinator) Approve(ctx context.Context, id uint64) Outcome {
	return c.run(ctx, Request{Operation: OpApprove, CampaignID: id})
}

func (c *Coordinator) run(ctx context.Context, req Request) Outcome {
	sub, out := c.Submit(ctx, req)
	if sub == nil {
		return out
	}
	return sub.Confirm(ctx)
}

// call is an encoded contract invocation.
type call struct {
	method string
	value  *big.Int
	args   []interface{}
}

// Submit runs the precondition checks, encodes and broadcasts req. On
// failure the Submission is nil and the Outcome explains why.
func (c *Coordinator) Submit(ctx context.Context, req Request) (*Submission, Outcome) {
	opID := uuid.NewString()
	account, _ := c.guard.Session().Account()

	fail := func(err error) (*Submission, Outcome) {
		out := failure(req.Operation, err)
		logger.Warn("%s %s failed [%s]: %s", req, opID, out.Code, out.Error)
		c.record(ctx, opID, req, account, out)
		return nil, out
	}

	if _, ok := fallbackMessages[req.Operation]; !ok {
		return fail(errs.New(errs.SubmissionFailed, fmt.Sprintf("unknown operation %q", req.Operation)))
	}
	if err := c.guard.Require(); err != nil {
		return fail(err)
	}
	if err := c.validate(req); err != nil {
		return fail(err)
	}

	enc, err := c.encode(ctx, req, account)
	if err != nil {
		return fail(err)
	}

	writer, err := c.client.Writer(ctx, account)
	if err != nil {
		return fail(err)
	}
	pending, err := writer.Submit(ctx, enc.method, enc.value, enc.args...)
	if err != nil {
		writer.Close()
		return fail(err)
	}

	sub := &Submission{
		c:       c,
		id:      opID,
		req:     req,
		account: account,
		writer:  writer,
		pending: pending,
	}
	if c.onSubmitted != nil {
		c.onSubmitted(Submitted{
			OperationID: opID,
			Operation:   req.Operation,
			TxHash:      pending.Hash().Hex(),
			Account:     account.Hex(),
		})
	}
	return sub, Outcome{Success: true, TxHash: pending.Hash().Hex()}
}

// validate checks input shape without any I/O.
func (c *Coordinator) validate(req Request) error {
	switch req.Operation {
	case OpCreate:
		r := req.Create
		if r.Token != "" && !common.IsHexAddress(r.Token) {
			return errs.New(errs.InvalidAddress, "invalid token address")
		}
		decimals := c.assetFor(r.Token).Decimals
		if _, err := amount.Positive(r.Goal, decimals); err != nil {
			return prefix("goal", err)
		}
		if r.DurationDays == 0 {
			return errs.New(errs.InvalidAmount, "duration must be at least one day")
		}
		if r.DurationDays > MaxDurationDays {
			return errs.New(errs.InvalidAmount, fmt.Sprintf("duration must be at most %d days", MaxDurationDays))
		}
		if r.MaxPledge != "" {
			if _, err := amount.ParseBaseUnits(r.MaxPledge, decimals); err != nil {
				return prefix("max pledge", err)
			}
		}
	case OpPledge:
		// Decimals depend on the campaign's asset; the widest is checked here
		// and the exact one once the campaign is known.
		if _, err := amount.Positive(req.Amount, amount.MaxDecimals); err != nil {
			return err
		}
	}
	return nil
}

func prefix(field string, err error) error {
	return errs.Wrap(errs.KindOf(err), err, fmt.Sprintf("%s: %s", field, errs.MessageOf(err)))
}

// assetFor resolves the pledge asset of a token address.
func (c *Coordinator) assetFor(token string) amount.Asset {
	net := c.client.Network()
	var addr common.Address
	if token != "" {
		addr = common.HexToAddress(token)
	}
	return amount.Resolve(addr, amount.Native(net.NativeSymbol, net.NativeDecimals))
}

func (c *Coordinator) encode(ctx context.Context, req Request, account common.Address) (call, error) {
	id := new(big.Int).SetUint64(req.CampaignID)
	switch req.Operation {
	case OpCreate:
		r := req.Create
		asset := c.assetFor(r.Token)
		goal, _ := amount.Positive(r.Goal, asset.Decimals)
		maxPledge := new(big.Int)
		if r.MaxPledge != "" {
			maxPledge, _ = amount.ParseBaseUnits(r.MaxPledge, asset.Decimals)
		}
		duration := new(big.Int).Mul(new(big.Int).SetUint64(r.DurationDays), big.NewInt(secondsPerDay))
		return call{method: chain.MethodCreateCampaign, args: []interface{}{goal, duration, asset.Token, maxPledge}}, nil

	case OpPledge:
		return c.encodePledge(ctx, req, account)
	case OpWithdraw:
		return call{method: chain.MethodWithdraw, args: []interface{}{id}}, nil
	case OpRefund:
		return call{method: chain.MethodRefund, args: []interface{}{id}}, nil
	case OpCancel:
		return call{method: chain.MethodCancelCampaign, args: []interface{}{id}}, nil
	case OpApprove:
		return call{method: chain.MethodApproveCampaign, args: []interface{}{id}}, nil
	}
	return call{}, errs.New(errs.SubmissionFailed, fmt.Sprintf("unknown operation %q", req.Operation))
}

func (c *Coordinator) encodePledge(ctx context.Context, req Request, account common.Address) (call, error) {
	v, ok := c.reader.GetCampaign(ctx, req.CampaignID)
	if !ok {
		return call{}, errs.New(errs.NetworkUnreachable, fmt.Sprintf("could not load campaign %d", req.CampaignID))
	}
	asset := c.assetFor(v.Token.Hex())
	value, err := amount.Positive(req.Amount, asset.Decimals)
	if err != nil {
		return call{}, err
	}

	if c.precheckMaxPledge && v.MaxPledge.Sign() > 0 {
		mine := c.reader.GetMyPledge(ctx, req.CampaignID, account)
		total := new(big.Int).Add(mine, value)
		if total.Cmp(v.MaxPledge) > 0 {
			left := new(big.Int).Sub(v.MaxPledge, mine)
			if left.Sign() < 0 {
				left.SetInt64(0)
			}
			return call{}, errs.New(errs.InvalidAmount, fmt.Sprintf("pledge exceeds the per-backer cap, at most %s %s more",
				amount.Format(left, asset.Decimals), asset.Symbol))
		}
	}

	id := new(big.Int).SetUint64(req.CampaignID)
	if v.IsNative() {
		return call{method: chain.MethodPledge, value: value, args: []interface{}{id}}, nil
	}
	return call{method: chain.MethodPledgeERC20, args: []interface{}{id, value}}, nil
}

func (c *Coordinator) record(ctx context.Context, opID string, req Request, account common.Address, out Outcome) {
	if c.recorder == nil {
		return
	}
	e := Entry{
		ID:        opID,
		Operation: req.Operation,
		TxHash:    out.TxHash,
		Success:   out.Success,
		Code:      out.Code,
		Error:     out.Error,
		CreatedAt: time.Now(),
	}
	if account != (common.Address{}) {
		e.Account = account.Hex()
	}
	switch {
	case out.CampaignID != nil:
		e.CampaignID = out.CampaignID
	case req.Operation != OpCreate:
		id := req.CampaignID
		e.CampaignID = &id
	}
	if err := c.recorder.Record(context.WithoutCancel(ctx), e); err != nil {
		logger.Error("Failed to journal %s %s: %v", req.Operation, opID, err)
	}
}

// Submission is a transaction accepted by the node. It cannot be cancelled;
// abandoning Confirm leaves the transaction to execute on-chain.
type Submission struct {
	c       *Coordinator
	id      string
	req     Request
	account common.Address
	writer  *chain.Writer
	pending *chain.PendingTx
}

func (s *Submission) OperationID() string { return s.id }

func (s *Submission) TxHash() string { return s.pending.Hash().Hex() }

// Confirm waits for inclusion and builds the final Outcome.
func (s *Submission) Confirm(ctx context.Context) Outcome {
	defer s.writer.Close()

	if s.c.confirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.c.confirmTimeout)
		defer cancel()
	}

	hash := s.TxHash()
	explorer := s.c.guard.Params().TxURL(hash)
	receipt, err := s.pending.Wait(ctx)
	if err != nil {
		out := failure(s.req.Operation, err)
		out.TxHash = hash
		out.ExplorerURL = explorer
		logger.Warn("%s %s (%s) not confirmed [%s]: %s", s.req, s.id, hash, out.Code, out.Error)
		s.c.record(ctx, s.id, s.req, s.account, out)
		return out
	}

	out := Outcome{Success: true, TxHash: hash, ExplorerURL: explorer}
	if s.req.Operation == OpCreate {
		id, err := s.c.client.Contract().CreatedCampaignID(receipt)
		if err != nil {
			out.Code = errs.EventParseFailure
			out.Warning = errs.MessageOf(err)
			logger.Warn("create %s confirmed in %s but campaign id is unknown: %v", s.id, hash, err)
		} else {
			out.CampaignID = &id
		}
	}
	logger.Info("%s %s confirmed in block %s: %s", s.req, s.id, receipt.BlockNumber, hash)
	s.c.record(ctx, s.id, s.req, s.account, out)
	return out
}

// String is used in logs.
func (r Request) String() string {
	var b strings.Builder
	b.WriteString(string(r.Operation))
	if r.Operation != OpCreate {
		fmt.Fprintf(&b, " #%d", r.CampaignID)
	}
	return b.String()
}
