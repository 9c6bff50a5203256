package router

import (
	"net/http"
	"time"

	"github.com/crisramb665/FundChain/internal/handler"
	"github.com/crisramb665/FundChain/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Network      *handler.NetworkHandler
	Campaign     *handler.CampaignHandler
	Price        *handler.PriceHandler
	Transactions *handler.TransactionHandler
}

func Setup(h Handlers) *gin.Engine {
	handler.RegisterValidations()

	r := gin.New()
	r.Use(requestID())
	r.Use(accessLog())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "fundchain",
		})
	})

	v1 := r.Group("/api/v1")
	{
		v1.GET("/network", h.Network.GetNetwork)
		v1.POST("/wallet/connect", h.Network.Connect)
		v1.POST("/wallet/disconnect", h.Network.Disconnect)

		v1.GET("/contract/limits", h.Campaign.GetLimits)
		v1.GET("/price", h.Price.GetPrice)
		v1.GET("/transactions", h.Transactions.ListTransactions)

		campaigns := v1.Group("/campaigns")
		{
			campaigns.GET("", h.Campaign.ListCampaigns)
			campaigns.POST("", h.Campaign.CreateCampaign)
			campaigns.GET("/:id", h.Campaign.GetCampaign)
			campaigns.GET("/:id/pledges/:backer", h.Campaign.GetPledge)
			campaigns.GET("/:id/activity", h.Campaign.GetActivity)
			campaigns.POST("/:id/pledge", h.Campaign.Pledge)
			campaigns.POST("/:id/withdraw", h.Campaign.Withdraw)
			campaigns.POST("/:id/refund", h.Campaign.Refund)
			campaigns.POST("/:id/cancel", h.Campaign.Cancel)
			campaigns.POST("/:id/approve", h.Campaign.Approve)
		}
	}

	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("%s %s %d %s [%s]", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start).Round(time.Microsecond), c.GetString("request_id"))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
