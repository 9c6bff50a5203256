package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/crisramb665/FundChain/internal/chain"
	"github.com/crisramb665/FundChain/internal/logger"
	"github.com/crisramb665/FundChain/internal/logic"
	"github.com/crisramb665/FundChain/internal/model"
)

const defaultBatchSize = 500

// Store persists decoded activity.
type Store interface {
	Save(ctx context.Context, rows []model.ActivityModel) error
	LatestBlock(ctx context.Context) (uint64, error)
}

// EventMonitor indexes crowdfund logs into a Store, one block range at a time.
type EventMonitor struct {
	client    *chain.Client
	store     Store
	batchSize uint64

	mu              sync.RWMutex
	nextBlock       uint64 // 0 until the start block is resolved
	lastBlock       uint64
	indexed         int
	retryCount      int
	lastRetryTime   time.Time
	backoffDuration time.Duration
}

func NewEventMonitor(client *chain.Client, store Store, batchSize int) *EventMonitor {
	size := uint64(defaultBatchSize)
	if batchSize > 0 {
		size = uint64(batchSize)
	}
	return &EventMonitor{
		client:          client,
		store:           store,
		batchSize:       size,
		backoffDuration: 5 * time.Second,
	}
}

// Poll indexes every block between the last indexed block and the chain head.
func (m *EventMonitor) Poll(ctx context.Context) error {
	if m.backingOff() {
		logger.Debug("Event monitor backing off until %s", m.retryAt().Format(time.RFC3339))
		return nil
	}

	reader, err := m.client.Reader(ctx)
	if err != nil {
		m.handleError(err)
		return err
	}
	defer reader.Close()

	current, err := reader.CurrentBlock(ctx)
	if err != nil {
		err = fmt.Errorf("failed to get current block number: %w", err)
		m.handleError(err)
		return err
	}

	from, err := m.startBlock(ctx)
	if err != nil {
		m.handleError(err)
		return err
	}
	if from > current {
		logger.Debug("No new blocks (next %d, head %d)", from, current)
		return nil
	}

	if err := m.processBlocksInBatches(ctx, reader, from, current); err != nil {
		m.handleError(err)
		return err
	}
	m.resetErrors()
	return nil
}

func (m *EventMonitor) processBlocksInBatches(ctx context.Context, reader *chain.Reader, fromBlock, toBlock uint64) error {
	logger.Debug("Processing blocks from %d to %d", fromBlock, toBlock)

	for currentFrom := fromBlock; currentFrom <= toBlock; currentFrom += m.batchSize {
		currentTo := currentFrom + m.batchSize - 1
		if currentTo > toBlock {
			currentTo = toBlock
		}
		if err := m.processBatchBlocks(ctx, reader, currentFrom, currentTo); err != nil {
			return fmt.Errorf("blocks %d-%d: %w", currentFrom, currentTo, err)
		}
		m.mu.Lock()
		m.nextBlock = currentTo + 1
		m.lastBlock = currentTo
		m.mu.Unlock()
	}
	return nil
}

func (m *EventMonitor) processBatchBlocks(ctx context.Context, reader *chain.Reader, fromBlock, toBlock uint64) error {
	logs, err := reader.Logs(ctx, fromBlock, toBlock)
	if err != nil {
		return fmt.Errorf("error getting logs: %w", err)
	}
	if len(logs) == 0 {
		return nil
	}

	contract := m.client.Contract()
	rows := make([]model.ActivityModel, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		ev, err := contract.ParseEvent(log)
		if err != nil {
			logger.Warn("Skipping log %s/%d: %v", log.TxHash.Hex(), log.Index, err)
			continue
		}
		row, err := logic.FromEvent(ev)
		if err != nil {
			logger.Warn("Skipping log %s/%d: %v", log.TxHash.Hex(), log.Index, err)
			continue
		}
		rows = append(rows, row)
	}
	if err := m.store.Save(ctx, rows); err != nil {
		return err
	}

	m.mu.Lock()
	m.indexed += len(rows)
	m.mu.Unlock()
	logger.Debug("Indexed %d events in blocks %d-%d", len(rows), fromBlock, toBlock)
	return nil
}

// startBlock resumes after the highest stored block, never before deployment.
func (m *EventMonitor) startBlock(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	next := m.nextBlock
	m.mu.RUnlock()
	if next > 0 {
		return next, nil
	}

	deployBlock := m.client.Contract().DeployBlock()
	maxProcessed, err := m.store.LatestBlock(ctx)
	if err != nil {
		return 0, err
	}

	start := deployBlock
	if maxProcessed >= deployBlock && maxProcessed > 0 {
		start = maxProcessed + 1
	}
	if start == 0 {
		start = 1
	}
	logger.Info("Event monitor start block: %d (deploy: %d, db: %d)", start, deployBlock, maxProcessed)

	m.mu.Lock()
	m.nextBlock = start
	m.mu.Unlock()
	return start, nil
}

func (m *EventMonitor) backingOff() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.retryCount > 0 && time.Now().Before(m.lastRetryTime.Add(m.backoffDuration))
}

func (m *EventMonitor) retryAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRetryTime.Add(m.backoffDuration)
}

func (m *EventMonitor) handleError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryCount++
	m.lastRetryTime = time.Now()

	if isRateLimitError(err) || m.retryCount > 5 {
		m.backoffDuration = 5 * time.Minute
	} else {
		m.backoffDuration = time.Duration(m.retryCount) * 10 * time.Second
	}
	logger.Error("Event monitor error (retry %d, next attempt in %s): %v", m.retryCount, m.backoffDuration, err)
}

func (m *EventMonitor) resetErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryCount = 0
	m.backoffDuration = 5 * time.Second
}

func isRateLimitError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "429")
}

// Status reports indexing progress.
func (m *EventMonitor) Status() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]interface{}{
		"next_block":  m.nextBlock,
		"last_block":  m.lastBlock,
		"indexed":     m.indexed,
		"retry_count": m.retryCount,
	}
}
