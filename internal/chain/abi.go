package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Crowdfund contract methods.
const (
	MethodMaxGoal            = "MAX_GOAL"
	MethodMaxPledge          = "MAX_PLEDGE"
	MethodModerationRequired = "moderationRequired"
	MethodCampaignsCount     = "getCampaignsCount"
	MethodGetCampaign        = "getCampaign"
	MethodGetMyPledge        = "getMyPledge"
	MethodCreateCampaign     = "createCampaign"
	MethodPledge             = "pledge"
	MethodPledgeERC20        = "pledgeERC20"
	MethodWithdraw           = "withdraw"
	MethodRefund             = "refund"
	MethodCancelCampaign     = "cancelCampaign"
	MethodApproveCampaign    = "approveCampaign"
)

// Crowdfund contract events.
const (
	EventCampaignCreated   = "CampaignCreated"
	EventCampaignApproved  = "CampaignApproved"
	EventPledged           = "Pledged"
	EventWithdrawn         = "Withdrawn"
	EventRefunded          = "Refunded"
	EventCampaignCancelled = "CampaignCancelled"
)

// CrowdfundABI is the fixed interface shared by read and write connections.
const CrowdfundABI = `[
{"type":"function","name":"MAX_GOAL","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"MAX_PLEDGE","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"moderationRequired","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"getCampaignsCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"getCampaign","stateMutability":"view","inputs":[{"name":"_id","type":"uint256"}],"outputs":[
 {"name":"owner","type":"address"},{"name":"token","type":"address"},{"name":"goal","type":"uint256"},
 {"name":"pledged","type":"uint256"},{"name":"startAt","type":"uint256"},{"name":"endAt","type":"uint256"},
 {"name":"claimed","type":"bool"},{"name":"approved","type":"bool"},{"name":"maxPledge","type":"uint256"}]},
{"type":"function","name":"getMyPledge","stateMutability":"view","inputs":[{"name":"_id","type":"uint256"},{"name":"_backer","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"createCampaign","stateMutability":"nonpayable","inputs":[{"name":"_goal","type":"uint256"},{"name":"_durationSeconds","type":"uint256"},{"name":"_token","type":"address"},{"name":"_maxPledge","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"pledge","stateMutability":"payable","inputs":[{"name":"_id","type":"uint256"}],"outputs":[]},
{"type":"function","name":"pledgeERC20","stateMutability":"nonpayable","inputs":[{"name":"_id","type":"uint256"},{"name":"_amount","type":"uint256"}],"outputs":[]},
{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"_id","type":"uint256"}],"outputs":[]},
{"type":"function","name":"refund","stateMutability":"nonpayable","inputs":[{"name":"_id","type":"uint256"}],"outputs":[]},
{"type":"function","name":"cancelCampaign","stateMutability":"nonpayable","inputs":[{"name":"_id","type":"uint256"}],"outputs":[]},
{"type":"function","name":"approveCampaign","stateMutability":"nonpayable","inputs":[{"name":"_id","type":"uint256"}],"outputs":[]},
{"type":"event","name":"CampaignCreated","anonymous":false,"inputs":[
 {"name":"id","type":"uint256","indexed":true},{"name":"owner","type":"address","indexed":true},
 {"name":"token","type":"address","indexed":false},{"name":"goal","type":"uint256","indexed":false},
 {"name":"startAt","type":"uint256","indexed":false},{"name":"endAt","type":"uint256","indexed":false},
 {"name":"maxPledge","type":"uint256","indexed":false}]},
{"type":"event","name":"CampaignApproved","anonymous":false,"inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"approver","type":"address","indexed":true}]},
{"type":"event","name":"Pledged","anonymous":false,"inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"backer","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
{"type":"event","name":"Withdrawn","anonymous":false,"inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"owner","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
{"type":"event","name":"Refunded","anonymous":false,"inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"backer","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
{"type":"event","name":"CampaignCancelled","anonymous":false,"inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"owner","type":"address","indexed":true}]}
]`

// MustParseABI parses CrowdfundABI and panics if it is malformed.
func MustParseABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(CrowdfundABI))
	if err != nil {
		panic("chain: invalid crowdfund ABI: " + err.Error())
	}
	return parsed
}
