package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/crisramb665/FundChain/internal/amount"
	"github.com/crisramb665/FundChain/internal/campaign"
	"github.com/crisramb665/FundChain/internal/errs"
	"github.com/crisramb665/FundChain/internal/logic"
	"github.com/crisramb665/FundChain/internal/network"
	"github.com/crisramb665/FundChain/internal/pricefeed"
	"github.com/crisramb665/FundChain/internal/tx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

type CampaignHandler struct {
	reader   *campaign.StateReader
	coord    *tx.Coordinator
	guard    *network.Guard
	feed     *pricefeed.Feed
	activity *logic.ActivityLogic // nil without a database
}

func NewCampaignHandler(reader *campaign.StateReader, coord *tx.Coordinator, guard *network.Guard, feed *pricefeed.Feed, activity *logic.ActivityLogic) *CampaignHandler {
	return &CampaignHandler{
		reader:   reader,
		coord:    coord,
		guard:    guard,
		feed:     feed,
		activity: activity,
	}
}

func (h *CampaignHandler) native() amount.Asset {
	p := h.guard.Params()
	return amount.Native(p.NativeSymbol, p.NativeDecimals)
}

func (h *CampaignHandler) toResponse(ctx context.Context, v campaign.View) CampaignResponse {
	asset := amount.Resolve(v.Token, h.native())
	params := h.guard.Params()
	resp := CampaignResponse{
		ID:                 v.ID,
		Owner:              v.Owner.Hex(),
		OwnerShort:         network.ShortenAddress(v.Owner),
		OwnerURL:           params.AddressURL(v.Owner),
		Asset:              asset,
		Goal:               amount.Format(v.Goal, asset.Decimals),
		Pledged:            amount.Format(v.Pledged, asset.Decimals),
		GoalBaseUnits:      v.Goal.String(),
		PledgedBaseUnits:   v.Pledged.String(),
		MaxPledge:          amount.Format(v.MaxPledge, asset.Decimals),
		StartAt:            v.StartAt,
		EndAt:              v.EndAt,
		Claimed:            v.Claimed,
		Approved:           v.Approved,
		ProgressPercentage: v.ProgressPercentage,
		BarPercentage:      v.BarPercentage,
		DaysLeft:           v.DaysLeft,
		IsActive:           v.IsActive,
		ObservedAt:         v.ObservedAt,
	}
	if h.feed != nil {
		resp.PledgedUSD = h.feed.Estimate(ctx, v.Pledged.String(), asset)
	} else {
		resp.PledgedUSD = "0.00"
	}
	return resp
}

// ListCampaigns returns every readable campaign ordered by id.
func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	ctx := c.Request.Context()
	views := h.reader.GetAllCampaigns(ctx)
	out := make([]CampaignResponse, 0, len(views))
	for _, v := range views {
		out = append(out, h.toResponse(ctx, v))
	}
	SuccessResponse(c, http.StatusOK, "ok", out)
}

// GetCampaign returns one campaign, seen by ?viewer= when given.
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	var uri campaignURI
	if err := c.ShouldBindUri(&uri); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid campaign id")
		return
	}
	var q viewerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid viewer address")
		return
	}

	ctx := c.Request.Context()
	viewer := common.HexToAddress(q.Viewer)
	if q.Viewer == "" {
		viewer, _ = h.guard.Session().Account()
	}
	st, ok := h.reader.ViewerState(ctx, uri.ID, viewer)
	if !ok {
		ErrorResponse(c, http.StatusNotFound, "campaign not found")
		return
	}

	resp := ViewerResponse{
		CampaignResponse: h.toResponse(ctx, st.View),
		MyPledge:         amount.Format(st.MyPledge, amount.Resolve(st.Token, h.native()).Decimals),
		Status:           st.Status,
		CanWithdraw:      st.CanWithdraw,
		CanRefund:        st.CanRefund,
		CanCancel:        st.CanCancel,
	}
	if viewer != (common.Address{}) {
		resp.Viewer = viewer.Hex()
	}
	SuccessResponse(c, http.StatusOK, "ok", resp)
}

// GetPledge returns a backer's cumulative pledge, zero when unknown.
func (h *CampaignHandler) GetPledge(c *gin.Context) {
	var uri pledgeURI
	if err := c.ShouldBindUri(&uri); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid campaign id or backer address")
		return
	}
	ctx := c.Request.Context()
	backer := common.HexToAddress(uri.Backer)
	mine := h.reader.GetMyPledge(ctx, uri.ID, backer)

	asset := h.native()
	if v, ok := h.reader.GetCampaign(ctx, uri.ID); ok {
		asset = amount.Resolve(v.Token, h.native())
	}
	SuccessResponse(c, http.StatusOK, "ok", PledgeResponse{
		CampaignID: uri.ID,
		Backer:     backer.Hex(),
		Asset:      asset,
		Amount:     amount.Format(mine, asset.Decimals),
		BaseUnits:  mine.String(),
	})
}

// GetActivity lists indexed events of a campaign.
func (h *CampaignHandler) GetActivity(c *gin.Context) {
	if h.activity == nil {
		ErrorResponse(c, http.StatusServiceUnavailable, "activity index disabled")
		return
	}
	var uri campaignURI
	if err := c.ShouldBindUri(&uri); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid campaign id")
		return
	}
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	page, pageSize := defaultPage(q)
	rows, total, err := h.activity.ListByCampaign(c.Request.Context(), uri.ID, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", ActivityListResponse{
		Activity:   rows,
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetLimits returns the contract caps.
func (h *CampaignHandler) GetLimits(c *gin.Context) {
	l, ok := h.reader.Limits(c.Request.Context())
	if !ok {
		KindError(c, errs.New(errs.NetworkUnreachable, "could not read contract limits"))
		return
	}
	decimals := h.native().Decimals
	SuccessResponse(c, http.StatusOK, "ok", LimitsResponse{
		MaxGoal:            amount.Format(l.MaxGoal, decimals),
		MaxPledge:          amount.Format(l.MaxPledge, decimals),
		ModerationRequired: l.ModerationRequired,
	})
}

func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	OutcomeResponse(c, h.coord.Create(c.Request.Context(), tx.CreateRequest{
		Goal:         req.Goal,
		DurationDays: req.DurationDays,
		Token:        req.Token,
		MaxPledge:    req.MaxPledge,
	}))
}

func (h *CampaignHandler) Pledge(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	var req PledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		KindError(c, errs.New(errs.InvalidAmount, "amount is required"))
		return
	}
	OutcomeResponse(c, h.coord.Pledge(c.Request.Context(), id, req.Amount))
}

func (h *CampaignHandler) Withdraw(c *gin.Context) {
	h.simple(c, h.coord.Withdraw)
}

func (h *CampaignHandler) Refund(c *gin.Context) {
	h.simple(c, h.coord.Refund)
}

func (h *CampaignHandler) Cancel(c *gin.Context) {
	h.simple(c, h.coord.Cancel)
}

func (h *CampaignHandler) Approve(c *gin.Context) {
	h.simple(c, h.coord.Approve)
}

func (h *CampaignHandler) simple(c *gin.Context, op func(context.Context, uint64) tx.Outcome) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	OutcomeResponse(c, op(c.Request.Context(), id))
}

func campaignID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid campaign id")
		return 0, false
	}
	return id, true
}

func defaultPage(q pageQuery) (int, int) {
	page, pageSize := q.Page, q.PageSize
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = 20
	}
	return page, pageSize
}
