package model

import (
	"time"
)

// TransactionModel journals one operation submitted through the coordinator,
// including those rejected before reaching the chain.
type TransactionModel struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	Operation  string    `json:"operation" gorm:"not null;size:16;index"`
	CampaignID *uint64   `json:"campaign_id" gorm:"index"`
	Account    string    `json:"account" gorm:"size:42;index"`
	TxHash     string    `json:"tx_hash" gorm:"size:66"`
	Success    bool      `json:"success" gorm:"not null"`
	Code       string    `json:"code" gorm:"size:32"`
	Error      string    `json:"error" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

func (TransactionModel) TableName() string {
	return "transaction_journal"
}
