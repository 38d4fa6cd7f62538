package server

import (
	"net/http"
	"time"

	handler "live-bidding/services/bidding/handler"
	"live-bidding/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application.
// No allowedOrigins means any browser origin may call the API.
func SetupRouter(biddingService handler.BiddingServiceInterface, live *handler.LiveHandler, allowedOrigins ...string) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging
	router.Use(cors.New(corsConfig(allowedOrigins)))

	biddingHandler := handler.NewBiddingHandler(biddingService)

	router.GET("/healthz", func(c *gin.Context) {
		utils.JSONResponse(c, http.StatusOK, nil, "ok")
	})
	router.GET("/ws", live.WebSocketHandler)

	bids := router.Group("/bids")
	{
		bids.POST("", biddingHandler.RecordBidHandler)
	}

	items := router.Group("/items")
	{
		items.GET("/:item_id/bid", biddingHandler.GetCurrentBidHandler)
		items.GET("/:item_id/events", live.StreamItemHandler)
	}

	return router
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Length", "Content-Type", "Last-Event-ID"},
		MaxAge:       12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = allowedOrigins
	cfg.AllowCredentials = true
	return cfg
}
