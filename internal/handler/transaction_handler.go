package handler

import (
	"net/http"

	"github.com/crisramb665/FundChain/internal/logic"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

type TransactionHandler struct {
	journal *logic.JournalLogic // nil without a database
}

func NewTransactionHandler(journal *logic.JournalLogic) *TransactionHandler {
	return &TransactionHandler{journal: journal}
}

// ListTransactions returns journaled operations, newest first.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	if h.journal == nil {
		ErrorResponse(c, http.StatusServiceUnavailable, "transaction journal disabled")
		return
	}
	var q journalQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	filter := logic.JournalFilter{CampaignID: q.CampaignID, Operation: q.Operation}
	if q.Account != "" {
		filter.Account = common.HexToAddress(q.Account).Hex()
	}
	page, pageSize := defaultPage(q.pageQuery)
	rows, total, err := h.journal.List(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "ok", TransactionListResponse{
		Transactions: rows,
		Pagination:   newPagination(page, pageSize, total),
	})
}
