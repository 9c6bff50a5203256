package chain

import (
	"fmt"
	"math/big"

	"github.com/crisramb665/FundChain/internal/errs"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Contract binds the crowdfund ABI to a deployed address.
type Contract struct {
	address     common.Address
	abi         abi.ABI
	deployBlock uint64
}

// NewContract returns the crowdfund contract at address.
func NewContract(address common.Address, deployBlock uint64) *Contract {
	return &Contract{
		address:     address,
		abi:         MustParseABI(),
		deployBlock: deployBlock,
	}
}

func (c *Contract) Address() common.Address { return c.address }

func (c *Contract) ABI() abi.ABI { return c.abi }

// DeployBlock is the first block worth scanning for events.
func (c *Contract) DeployBlock() uint64 { return c.deployBlock }

// Event is a decoded crowdfund log. Every crowdfund event indexes the campaign
// id first and an account second.
type Event struct {
	Name        string
	CampaignID  uint64
	Account     common.Address
	Amount      *big.Int // Pledged, Withdrawn, Refunded amount or CampaignCreated goal
	Fields      map[string]interface{}
	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint
}

// ParseEvent decodes a log emitted by the contract.
func (c *Contract) ParseEvent(log types.Log) (*Event, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("log %s/%d has no topics", log.TxHash.Hex(), log.Index)
	}
	event, err := c.abi.EventByID(log.Topics[0])
	if err != nil {
		return nil, fmt.Errorf("unknown event signature %s: %w", log.Topics[0].Hex(), err)
	}

	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if len(log.Topics)-1 != len(indexed) {
		return nil, fmt.Errorf("event %s: expected %d indexed topics, got %d", event.Name, len(indexed), len(log.Topics)-1)
	}

	fields := make(map[string]interface{})
	if err := abi.ParseTopicsIntoMap(fields, indexed, log.Topics[1:]); err != nil {
		return nil, fmt.Errorf("event %s: parse topics: %w", event.Name, err)
	}
	if err := event.Inputs.UnpackIntoMap(fields, log.Data); err != nil {
		return nil, fmt.Errorf("event %s: unpack data: %w", event.Name, err)
	}

	out := &Event{
		Name:        event.Name,
		Fields:      fields,
		TxHash:      log.TxHash,
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
	}

	id, ok := fields[indexed[0].Name].(*big.Int)
	if !ok || !id.IsUint64() {
		return nil, fmt.Errorf("event %s: campaign id out of range", event.Name)
	}
	out.CampaignID = id.Uint64()
	if len(indexed) > 1 {
		out.Account, _ = fields[indexed[1].Name].(common.Address)
	}
	switch event.Name {
	case EventCampaignCreated:
		out.Amount, _ = fields["goal"].(*big.Int)
	default:
		out.Amount, _ = fields["amount"].(*big.Int)
	}
	return out, nil
}

// CreatedCampaignID finds the CampaignCreated log in a receipt and returns the
// id from its first indexed topic. Failure is an EventParseFailure; the
// transaction itself has still succeeded.
func (c *Contract) CreatedCampaignID(receipt *types.Receipt) (uint64, error) {
	if receipt == nil {
		return 0, errs.New(errs.EventParseFailure, "no receipt to scan")
	}
	created := c.abi.Events[EventCampaignCreated].ID
	for _, log := range receipt.Logs {
		if log == nil || log.Address != c.address || len(log.Topics) < 2 || log.Topics[0] != created {
			continue
		}
		id := new(big.Int).SetBytes(log.Topics[1].Bytes())
		if !id.IsUint64() {
			return 0, errs.New(errs.EventParseFailure, "campaign id out of range")
		}
		return id.Uint64(), nil
	}
	return 0, errs.New(errs.EventParseFailure, "campaign created event not found in receipt")
}
