package logic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/crisramb665/FundChain/internal/chain"
	"github.com/crisramb665/FundChain/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const saveBatchSize = 100

// ActivityLogic stores and queries indexed contract events.
type ActivityLogic struct {
	db *gorm.DB
}

func NewActivityLogic(db *gorm.DB) *ActivityLogic {
	return &ActivityLogic{db: db}
}

// FromEvent converts a decoded log into its row.
func FromEvent(ev *chain.Event) (model.ActivityModel, error) {
	data, err := json.Marshal(ev.Fields)
	if err != nil {
		return model.ActivityModel{}, fmt.Errorf("failed to encode %s fields: %w", ev.Name, err)
	}
	row := model.ActivityModel{
		TxHash:      ev.TxHash.Hex(),
		LogIndex:    ev.LogIndex,
		BlockNumber: ev.BlockNumber,
		CampaignID:  ev.CampaignID,
		EventType:   ev.Name,
		Data:        string(data),
	}
	if ev.Account != ([20]byte{}) {
		row.Account = ev.Account.Hex()
	}
	if ev.Amount != nil {
		row.Amount = ev.Amount.String()
	}
	return row, nil
}

// Save inserts rows, skipping logs that are already stored.
func (a *ActivityLogic) Save(ctx context.Context, rows []model.ActivityModel) error {
	if len(rows) == 0 {
		return nil
	}
	err := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, saveBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to save %d activity rows: %w", len(rows), err)
	}
	return nil
}

// LatestBlock returns the highest indexed block, 0 when nothing is stored.
func (a *ActivityLogic) LatestBlock(ctx context.Context) (uint64, error) {
	var block uint64
	err := a.db.WithContext(ctx).Model(&model.ActivityModel{}).
		Select("COALESCE(MAX(block_number), 0)").
		Scan(&block).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read latest indexed block: %w", err)
	}
	return block, nil
}

// ListByCampaign returns a campaign's activity in chain order.
func (a *ActivityLogic) ListByCampaign(ctx context.Context, campaignID uint64, page, pageSize int) ([]model.ActivityModel, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	query := a.db.WithContext(ctx).Model(&model.ActivityModel{}).Where("campaign_id = ?", campaignID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count activity: %w", err)
	}

	var rows []model.ActivityModel
	offset := (page - 1) * pageSize
	if err := query.Order("block_number ASC, log_index ASC").Offset(offset).Limit(pageSize).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list activity: %w", err)
	}
	return rows, total, nil
}
