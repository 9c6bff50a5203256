package handler

import (
	"time"

	"github.com/crisramb665/FundChain/internal/amount"
	"github.com/crisramb665/FundChain/internal/campaign"
	"github.com/crisramb665/FundChain/internal/model"
	"github.com/crisramb665/FundChain/internal/network"
	"github.com/crisramb665/FundChain/internal/session"
)

// Response is the envelope of every API reply.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"totalPage"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	p := Pagination{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		p.TotalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return p
}

// Request bodies. Amounts are decimal strings in the campaign's asset.

type CreateCampaignRequest struct {
	Goal         string `json:"goal" binding:"required"`
	DurationDays uint64 `json:"durationDays" binding:"required,min=1,max=3650"`
	Token        string `json:"token" binding:"omitempty,eth_addr"`
	MaxPledge    string `json:"maxPledge" binding:"omitempty,amount"`
}

type PledgeRequest struct {
	Amount string `json:"amount" binding:"required"`
}

type campaignURI struct {
	ID uint64 `uri:"id"`
}

type pledgeURI struct {
	ID     uint64 `uri:"id"`
	Backer string `uri:"backer" binding:"required,eth_addr"`
}

type viewerQuery struct {
	Viewer string `form:"viewer" binding:"omitempty,eth_addr"`
}

type pageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type priceQuery struct {
	Amount string `form:"amount" binding:"omitempty,amount"`
	Token  string `form:"token" binding:"omitempty,eth_addr"`
}

type journalQuery struct {
	pageQuery
	Account    string  `form:"account" binding:"omitempty,eth_addr"`
	CampaignID *uint64 `form:"campaign_id"`
	Operation  string  `form:"operation" binding:"omitempty,oneof=create pledge withdraw refund cancel approve"`
}

// Responses.

type CampaignResponse struct {
	ID                 uint64       `json:"id"`
	Owner              string       `json:"owner"`
	OwnerShort         string       `json:"ownerShort"`
	OwnerURL           string       `json:"ownerUrl"`
	Asset              amount.Asset `json:"asset"`
	Goal               string       `json:"goal"`
	Pledged            string       `json:"pledged"`
	GoalBaseUnits      string       `json:"goalBaseUnits"`
	PledgedBaseUnits   string       `json:"pledgedBaseUnits"`
	MaxPledge          string       `json:"maxPledge"`
	PledgedUSD         string       `json:"pledgedUsd"`
	StartAt            uint64       `json:"startAt"`
	EndAt              uint64       `json:"endAt"`
	Claimed            bool         `json:"claimed"`
	Approved           bool         `json:"approved"`
	ProgressPercentage uint64       `json:"progressPercentage"`
	BarPercentage      uint64       `json:"barPercentage"`
	DaysLeft           uint64       `json:"daysLeft"`
	IsActive           bool         `json:"isActive"`
	ObservedAt         time.Time    `json:"observedAt"`
}

type ViewerResponse struct {
	CampaignResponse
	Viewer      string          `json:"viewer"`
	MyPledge    string          `json:"myPledge"`
	Status      campaign.Status `json:"status"`
	CanWithdraw bool            `json:"canWithdraw"`
	CanRefund   bool            `json:"canRefund"`
	CanCancel   bool            `json:"canCancel"`
}

type PledgeResponse struct {
	CampaignID uint64       `json:"campaignId"`
	Backer     string       `json:"backer"`
	Asset      amount.Asset `json:"asset"`
	Amount     string       `json:"amount"`
	BaseUnits  string       `json:"baseUnits"`
}

type LimitsResponse struct {
	MaxGoal            string `json:"maxGoal"`
	MaxPledge          string `json:"maxPledge"`
	ModerationRequired bool   `json:"moderationRequired"`
}

type NetworkResponse struct {
	Network        network.Params `json:"network"`
	Session        session.State  `json:"session"`
	CorrectNetwork bool           `json:"correctNetwork"`
	HasProvider    bool           `json:"hasProvider"`
	AccountShort   string         `json:"accountShort,omitempty"`
	AccountURL     string         `json:"accountUrl,omitempty"`
}

type PriceResponse struct {
	Symbol    string     `json:"symbol"`
	USD       string     `json:"usd"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Amount    string     `json:"amount,omitempty"`
	Estimate  string     `json:"estimateUsd,omitempty"`
}

type ActivityListResponse struct {
	Activity   []model.ActivityModel `json:"activity"`
	Pagination Pagination            `json:"pagination"`
}

type TransactionListResponse struct {
	Transactions []model.TransactionModel `json:"transactions"`
	Pagination   Pagination               `json:"pagination"`
}
