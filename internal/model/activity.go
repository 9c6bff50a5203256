package model

import (
	"time"
)

// ActivityModel is one decoded crowdfund log. A log is identified by its
// transaction hash and index, so re-indexing a block range is idempotent.
type ActivityModel struct {
	TxHash   string `json:"tx_hash" gorm:"primaryKey;size:66"`
	LogIndex uint   `json:"log_index" gorm:"primaryKey;autoIncrement:false"`

	BlockNumber uint64    `json:"block_number" gorm:"not null;index"`
	CampaignID  uint64    `json:"campaign_id" gorm:"not null;index"`
	EventType   string    `json:"event_type" gorm:"not null;size:32"`
	Account     string    `json:"account" gorm:"size:42;index"`
	Amount      string    `json:"amount" gorm:"size:80"` // base units
	Data        string    `json:"data" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}

func (ActivityModel) TableName() string {
	return "activity"
}
