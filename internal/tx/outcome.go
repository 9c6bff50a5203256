package tx

import (
	"time"

	"github.com/crisramb665/FundChain/internal/errs"
)

// Operation names a state-changing contract call.
type Operation string

const (
	OpCreate   Operation = "create"
	OpPledge   Operation = "pledge"
	OpWithdraw Operation = "withdraw"
	OpRefund   Operation = "refund"
	OpCancel   Operation = "cancel"
	OpApprove  Operation = "approve"
)

var fallbackMessages = map[Operation]string{
	OpCreate:   "Failed to create campaign",
	OpPledge:   "Failed to pledge",
	OpWithdraw: "Failed to withdraw",
	OpRefund:   "Failed to refund",
	OpCancel:   "Failed to cancel campaign",
	OpApprove:  "Failed to approve campaign",
}

// Outcome is the uniform result of every operation.
type Outcome struct {
	Success     bool      `json:"success"`
	TxHash      string    `json:"txHash,omitempty"`
	CampaignID  *uint64   `json:"campaignId,omitempty"`
	Error       string    `json:"error,omitempty"`
	Code        errs.Kind `json:"code,omitempty"`
	Warning     string    `json:"warning,omitempty"`
	ExplorerURL string    `json:"explorerUrl,omitempty"`
}

// failure builds a failed Outcome. Error leads with the kind, as in
// "WrongNetwork: please switch to ...", so it is readable without Code.
func failure(op Operation, err error) Outcome {
	msg := errs.MessageOf(err)
	if msg == "" {
		msg = fallbackMessages[op]
	}
	code := errs.KindOf(err)
	if code == "" {
		code = errs.SubmissionFailed
	}
	return Outcome{Success: false, Error: string(code) + ": " + msg, Code: code}
}

// Entry is one journaled operation.
type Entry struct {
	ID         string
	Operation  Operation
	CampaignID *uint64
	Account    string
	TxHash     string
	Success    bool
	Code       errs.Kind
	Error      string
	CreatedAt  time.Time
}
