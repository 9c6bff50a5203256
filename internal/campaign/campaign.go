// Package campaign turns raw contract state into display-ready campaign views
// and decides, per viewer, which actions a campaign allows.
package campaign

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/crisramb665/FundChain/internal/chain"
	"github.com/ethereum/go-ethereum/common"
)

const secondsPerDay = 86400

// Record is the on-chain campaign. It is never mutated locally.
type Record struct {
	ID        uint64
	Owner     common.Address
	Token     common.Address // zero address means the native asset
	Goal      *big.Int
	Pledged   *big.Int
	StartAt   uint64
	EndAt     uint64
	Claimed   bool
	Approved  bool
	MaxPledge *big.Int // 0 means unlimited
}

// RecordFromChain converts a getCampaign tuple.
func RecordFromChain(id uint64, d *chain.CampaignData) (Record, error) {
	if d == nil {
		return Record{}, fmt.Errorf("campaign %d: empty result", id)
	}
	if !d.StartAt.IsUint64() || !d.EndAt.IsUint64() {
		return Record{}, fmt.Errorf("campaign %d: timestamp out of range", id)
	}
	return Record{
		ID:        id,
		Owner:     d.Owner,
		Token:     d.Token,
		Goal:      nonNil(d.Goal),
		Pledged:   nonNil(d.Pledged),
		StartAt:   d.StartAt.Uint64(),
		EndAt:     d.EndAt.Uint64(),
		Claimed:   d.Claimed,
		Approved:  d.Approved,
		MaxPledge: nonNil(d.MaxPledge),
	}, nil
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// IsNative reports whether pledges are made in the native asset.
func (r Record) IsNative() bool {
	return r.Token == (common.Address{})
}

func (r Record) ended(now time.Time) bool {
	return unixSeconds(now) >= r.EndAt
}

func (r Record) goalReached() bool {
	return r.Pledged.Cmp(r.Goal) >= 0
}

// View is a Record plus the values derived from it at ObservedAt. Views are
// rebuilt on every read.
type View struct {
	Record
	ProgressPercentage uint64 // floor(pledged*100/goal), may exceed 100
	BarPercentage      uint64 // ProgressPercentage clamped to 100
	DaysLeft           uint64
	IsActive           bool
	ObservedAt         time.Time
}

// Derive computes the view of r at now.
func Derive(r Record, now time.Time) View {
	v := View{
		Record:             r,
		ProgressPercentage: Progress(r.Pledged, r.Goal),
		DaysLeft:           DaysLeft(r.EndAt, now),
		IsActive:           !r.ended(now) && !r.Claimed,
		ObservedAt:         now,
	}
	v.BarPercentage = v.ProgressPercentage
	if v.BarPercentage > 100 {
		v.BarPercentage = 100
	}
	return v
}

// Progress returns floor(pledged*100/goal), or 0 when goal is 0.
func Progress(pledged, goal *big.Int) uint64 {
	if goal == nil || goal.Sign() <= 0 || pledged == nil || pledged.Sign() <= 0 {
		return 0
	}
	p := new(big.Int).Mul(pledged, big.NewInt(100))
	p.Quo(p, goal)
	if !p.IsUint64() {
		return math.MaxUint64
	}
	return p.Uint64()
}

// DaysLeft returns max(0, ceil((endAt-now)/86400)).
func DaysLeft(endAt uint64, now time.Time) uint64 {
	n := unixSeconds(now)
	if n >= endAt {
		return 0
	}
	remaining := endAt - n
	days := remaining / secondsPerDay
	if remaining%secondsPerDay != 0 {
		days++
	}
	return days
}

// unixSeconds is now in the uint64 domain of on-chain timestamps, clamped at 0.
func unixSeconds(now time.Time) uint64 {
	n := now.Unix()
	if n < 0 {
		return 0
	}
	return uint64(n)
}
