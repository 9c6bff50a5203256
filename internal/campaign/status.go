package campaign

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Status is a campaign's state as seen by one viewer.
type Status string

const (
	StatusPending             Status = "Pending"
	StatusActive              Status = "Active"
	StatusSuccessfulUnclaimed Status = "SuccessfulUnclaimed"
	StatusClaimed             Status = "Claimed"
	StatusFailedUnrefunded    Status = "FailedUnrefunded"
	StatusEnded               Status = "Ended"
)

// StatusFor evaluates the state machine. Claimed wins over everything; an
// unapproved campaign is Pending only while its window is open.
func StatusFor(r Record, viewer common.Address, myPledge *big.Int, now time.Time) Status {
	switch {
	case r.Claimed:
		return StatusClaimed
	case !r.ended(now) && !r.Approved:
		return StatusPending
	case !r.ended(now):
		return StatusActive
	case r.goalReached():
		return StatusSuccessfulUnclaimed
	case myPledge != nil && myPledge.Sign() > 0:
		return StatusFailedUnrefunded
	}
	return StatusEnded
}

// CanWithdraw: viewer owns the campaign, it has ended at or above goal and
// the funds are unclaimed.
func CanWithdraw(r Record, viewer common.Address, now time.Time) bool {
	if viewer == (common.Address{}) {
		return false
	}
	return viewer == r.Owner && r.ended(now) && r.goalReached() && !r.Claimed
}

// CanRefund: viewer is a backer of a campaign that ended below goal.
func CanRefund(r Record, viewer common.Address, myPledge *big.Int, now time.Time) bool {
	if viewer == (common.Address{}) || myPledge == nil {
		return false
	}
	return viewer != r.Owner && r.ended(now) && !r.goalReached() && myPledge.Sign() > 0
}

// CanCancel: the owner may cancel while the window is open and funds unclaimed.
func CanCancel(r Record, viewer common.Address, now time.Time) bool {
	if viewer == (common.Address{}) {
		return false
	}
	return viewer == r.Owner && !r.ended(now) && !r.Claimed
}
