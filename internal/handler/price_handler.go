package handler

import (
	"net/http"

	"github.com/crisramb665/FundChain/internal/amount"
	"github.com/crisramb665/FundChain/internal/network"
	"github.com/crisramb665/FundChain/internal/pricefeed"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

type PriceHandler struct {
	feed   *pricefeed.Feed
	params network.Params
}

func NewPriceHandler(feed *pricefeed.Feed, params network.Params) *PriceHandler {
	return &PriceHandler{feed: feed, params: params}
}

// GetPrice returns the native asset quote and, with ?amount=, a USD estimate
// for that many units of ?token= (native when omitted).
func (h *PriceHandler) GetPrice(c *gin.Context) {
	var q priceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid amount or token")
		return
	}

	ctx := c.Request.Context()
	asset := amount.Resolve(common.HexToAddress(q.Token), amount.Native(h.params.NativeSymbol, h.params.NativeDecimals))
	resp := PriceResponse{
		Symbol: asset.Symbol,
		USD:    h.feed.UnitPrice(ctx, asset).StringFixed(2),
	}
	if asset.IsNative() {
		if _, at := h.feed.Price(); !at.IsZero() {
			resp.UpdatedAt = &at
		}
	}

	if q.Amount != "" {
		base, err := amount.ToBaseUnits(q.Amount, asset.Decimals)
		if err != nil {
			KindError(c, err)
			return
		}
		resp.Amount = q.Amount
		resp.Estimate = h.feed.Estimate(ctx, base, asset)
	}
	SuccessResponse(c, http.StatusOK, "ok", resp)
}
