package handler

import (
	"net/http"

	"github.com/crisramb665/FundChain/internal/errs"
	"github.com/crisramb665/FundChain/internal/tx"
	"github.com/gin-gonic/gin"
)

// SuccessResponse writes a success envelope.
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse writes a failure envelope.
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// KindError writes a failure envelope for a classified error.
func KindError(c *gin.Context, err error) {
	ErrorResponse(c, statusFor(errs.KindOf(err)), errs.MessageOf(err))
}

// OutcomeResponse writes a transaction outcome. Failed outcomes keep the
// outcome as data so the code and tx hash reach the caller.
func OutcomeResponse(c *gin.Context, out tx.Outcome) {
	if out.Success {
		msg := "transaction confirmed"
		if out.Warning != "" {
			msg = out.Warning
		}
		SuccessResponse(c, http.StatusOK, msg, out)
		return
	}
	c.JSON(statusFor(out.Code), Response{
		Success: false,
		Message: out.Error,
		Data:    out,
	})
}

func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.InvalidAmount, errs.InvalidAddress:
		return http.StatusBadRequest
	case errs.NotConnected:
		return http.StatusUnauthorized
	case errs.UserRejected:
		return http.StatusForbidden
	case errs.WrongNetwork, errs.PendingRequestExists:
		return http.StatusConflict
	case errs.SubmissionFailed:
		return http.StatusUnprocessableEntity
	case errs.NetworkUnreachable:
		return http.StatusBadGateway
	case errs.NoWalletProvider:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
