package logic

import (
	"context"
	"fmt"

	"github.com/crisramb665/FundChain/internal/model"
	"github.com/crisramb665/FundChain/internal/tx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JournalLogic stores coordinator outcomes. It implements tx.Recorder.
type JournalLogic struct {
	db *gorm.DB
}

func NewJournalLogic(db *gorm.DB) *JournalLogic {
	return &JournalLogic{db: db}
}

// Record saves one entry. A repeated entry id overwrites the earlier row.
func (j *JournalLogic) Record(ctx context.Context, e tx.Entry) error {
	row := model.TransactionModel{
		ID:         e.ID,
		Operation:  string(e.Operation),
		CampaignID: e.CampaignID,
		Account:    e.Account,
		TxHash:     e.TxHash,
		Success:    e.Success,
		Code:       string(e.Code),
		Error:      e.Error,
		CreatedAt:  e.CreatedAt,
	}
	if err := j.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save journal entry %s: %w", e.ID, err)
	}
	return nil
}

// JournalFilter narrows List. Zero values match everything.
type JournalFilter struct {
	Account    string
	CampaignID *uint64
	Operation  string
}

// List returns entries newest first.
func (j *JournalLogic) List(ctx context.Context, f JournalFilter, page, pageSize int) ([]model.TransactionModel, int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	query := j.db.WithContext(ctx).Model(&model.TransactionModel{})
	if f.Account != "" {
		query = query.Where("account = ?", f.Account)
	}
	if f.CampaignID != nil {
		query = query.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.Operation != "" {
		query = query.Where("operation = ?", f.Operation)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count journal entries: %w", err)
	}

	var rows []model.TransactionModel
	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list journal entries: %w", err)
	}
	return rows, total, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
