package handler

import (
	"net/http"

	"github.com/crisramb665/FundChain/internal/errs"
	"github.com/crisramb665/FundChain/internal/network"
	"github.com/gin-gonic/gin"
)

type NetworkHandler struct {
	guard *network.Guard
}

func NewNetworkHandler(guard *network.Guard) *NetworkHandler {
	return &NetworkHandler{guard: guard}
}

func (h *NetworkHandler) state() NetworkResponse {
	st := h.guard.Session().Snapshot()
	resp := NetworkResponse{
		Network:        h.guard.Params(),
		Session:        st,
		CorrectNetwork: h.guard.IsCorrectNetwork(),
		HasProvider:    h.guard.HasProvider(),
	}
	if st.Connected {
		resp.AccountShort = network.ShortenAddress(st.Account)
		resp.AccountURL = h.guard.Params().AddressURL(st.Account)
	}
	return resp
}

// GetNetwork returns the required network and the session state.
func (h *NetworkHandler) GetNetwork(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "ok", h.state())
}

// Connect authorizes an account and moves the wallet to the required network.
func (h *NetworkHandler) Connect(c *gin.Context) {
	if _, err := h.guard.Connect(c.Request.Context()); err != nil {
		c.JSON(statusFor(errs.KindOf(err)), Response{
			Success: false,
			Message: errs.MessageOf(err),
			Data:    h.state(),
		})
		return
	}
	SuccessResponse(c, http.StatusOK, "wallet connected", h.state())
}

// Disconnect clears the local session only.
func (h *NetworkHandler) Disconnect(c *gin.Context) {
	h.guard.Disconnect()
	SuccessResponse(c, http.StatusOK, "wallet disconnected", h.state())
}
