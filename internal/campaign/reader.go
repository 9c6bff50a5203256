package campaign

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/crisramb665/FundChain/internal/chain"
	"github.com/crisramb665/FundChain/internal/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/panjf2000/ants/v2"
)

const (
	defaultConcurrency  = 8
	defaultMaxCampaigns = 10_000
)

// ViewerView is a campaign seen by one account.
type ViewerView struct {
	View
	Viewer      common.Address
	MyPledge    *big.Int
	Status      Status
	CanWithdraw bool
	CanRefund   bool
	CanCancel   bool
}

// Limits are the contract-wide caps.
type Limits struct {
	MaxGoal            *big.Int
	MaxPledge          *big.Int
	ModerationRequired bool
}

// StateReader reads campaigns through a fresh read connection per call.
// Failures are logged and reported as absence.
type StateReader struct {
	client      *chain.Client
	now          func() time.Time
	concurrency  int
	maxCampaigns uint64
}

type Option func(*StateReader)

// WithClock overrides the wall clock used for derived fields.
func WithClock(now func() time.Time) Option {
	return func(r *StateReader) { r.now = now }
}

// WithConcurrency bounds parallel reads in GetAllCampaigns.
func WithConcurrency(n int) Option {
	return func(r *StateReader) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithMaxCampaigns caps how many ids GetAllCampaigns reads.
func WithMaxCampaigns(n uint64) Option {
	return func(r *StateReader) {
		if n > 0 {
			r.maxCampaigns = n
		}
	}
}

func NewStateReader(client *chain.Client, opts ...Option) *StateReader {
	r := &StateReader{
		client:       client,
		now:          time.Now,
		concurrency:  defaultConcurrency,
		maxCampaigns: defaultMaxCampaigns,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (s *StateReader) fetch(ctx context.Context, reader *chain.Reader, id uint64) (Record, error) {
	data, err := reader.Campaign(ctx, id)
	if err != nil {
		return Record{}, err
	}
	return RecordFromChain(id, data)
}

// GetCampaign returns campaign id, or false on any failure.
func (s *StateReader) GetCampaign(ctx context.Context, id uint64) (*View, bool) {
	reader, err := s.client.Reader(ctx)
	if err != nil {
		logger.Warn("Failed to open read connection: %v", err)
		return nil, false
	}
	defer reader.Close()

	rec, err := s.fetch(ctx, reader, id)
	if err != nil {
		logger.Warn("Failed to fetch campaign %d: %v", id, err)
		return nil, false
	}
	v := Derive(rec, s.now())
	return &v, true
}

// GetAllCampaigns returns every readable campaign in id order. An index that
// fails to load is left out; the rest are unaffected. At most maxCampaigns
// ids are read.
func (s *StateReader) GetAllCampaigns(ctx context.Context) []View {
	reader, err := s.client.Reader(ctx)
	if err != nil {
		logger.Warn("Failed to open read connection: %v", err)
		return []View{}
	}
	defer reader.Close()

	count, err := reader.CampaignsCount(ctx)
	if err != nil {
		logger.Warn("Failed to fetch campaigns count: %v", err)
		return []View{}
	}
	if count == 0 {
		return []View{}
	}
	if count > s.maxCampaigns {
		logger.Warn("Campaign count %d exceeds the listing cap, reading the first %d", count, s.maxCampaigns)
		count = s.maxCampaigns
	}

	size := s.concurrency
	if uint64(size) > count {
		size = int(count)
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		logger.Error("Failed to create campaign fetch pool: %v", err)
		return []View{}
	}
	defer pool.Release()

	records := make([]*Record, count)
	var wg sync.WaitGroup
	for i := uint64(0); i < count; i++ {
		id := i
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			rec, err := s.fetch(ctx, reader, id)
			if err != nil {
				logger.Warn("Skipping campaign %d: %v", id, err)
				return
			}
			records[id] = &rec
		}); err != nil {
			wg.Done()
			logger.Warn("Skipping campaign %d: %v", id, err)
		}
	}
	wg.Wait()

	now := s.now()
	views := make([]View, 0, count)
	for _, rec := range records {
		if rec != nil {
			views = append(views, Derive(*rec, now))
		}
	}
	return views
}

// GetMyPledge returns backer's cumulative pledge. It is 0 for a zero backer
// and on any failure.
func (s *StateReader) GetMyPledge(ctx context.Context, id uint64, backer common.Address) *big.Int {
	if backer == (common.Address{}) {
		return new(big.Int)
	}
	reader, err := s.client.Reader(ctx)
	if err != nil {
		logger.Warn("Failed to open read connection: %v", err)
		return new(big.Int)
	}
	defer reader.Close()

	p, err := reader.MyPledge(ctx, id, backer)
	if err != nil || p == nil {
		logger.Warn("Failed to fetch pledge of %s in campaign %d: %v", backer.Hex(), id, err)
		return new(big.Int)
	}
	return p
}

// ViewerState returns campaign id with viewer's pledge and permitted actions.
func (s *StateReader) ViewerState(ctx context.Context, id uint64, viewer common.Address) (*ViewerView, bool) {
	v, ok := s.GetCampaign(ctx, id)
	if !ok {
		return nil, false
	}
	mine := s.GetMyPledge(ctx, id, viewer)
	now := v.ObservedAt
	return &ViewerView{
		View:        *v,
		Viewer:      viewer,
		MyPledge:    mine,
		Status:      StatusFor(v.Record, viewer, mine, now),
		CanWithdraw: CanWithdraw(v.Record, viewer, now),
		CanRefund:   CanRefund(v.Record, viewer, mine, now),
		CanCancel:   CanCancel(v.Record, viewer, now),
	}, true
}

// Limits reads the contract caps and moderation flag.
func (s *StateReader) Limits(ctx context.Context) (Limits, bool) {
	reader, err := s.client.Reader(ctx)
	if err != nil {
		logger.Warn("Failed to open read connection: %v", err)
		return Limits{}, false
	}
	defer reader.Close()

	var l Limits
	if l.MaxGoal, err = reader.MaxGoal(ctx); err != nil {
		logger.Warn("Failed to fetch MAX_GOAL: %v", err)
		return Limits{}, false
	}
	if l.MaxPledge, err = reader.MaxPledge(ctx); err != nil {
		logger.Warn("Failed to fetch MAX_PLEDGE: %v", err)
		return Limits{}, false
	}
	if l.ModerationRequired, err = reader.ModerationRequired(ctx); err != nil {
		logger.Warn("Failed to fetch moderationRequired: %v", err)
		return Limits{}, false
	}
	return l, true
}
