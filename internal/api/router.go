package api

import (
	"context"
	"net/http"
	"time"

	"yafs_miniapp/internal/middleware"
	"yafs_miniapp/internal/service"
	"yafs_miniapp/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Rewards       service.RewardServiceI
	Referrals     service.ReferralServiceI
	Users         service.UserServiceI
	Authorization *middleware.Authorization
	RateLimiter   *middleware.RateLimiter
	Store         Pinger
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(middleware.RequestID(), middleware.AccessLog(), middleware.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodOptions,
	}
	config.AllowHeaders = []string{
		"Content-Type",
		"Authorization",
		"X-Telegram-Init-Data",
		middleware.RequestIDHeader,
	}
	config.ExposeHeaders = []string{middleware.RequestIDHeader}
	config.OptionsResponseStatusCode = http.StatusOK
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	router.GET("/healthz", health(d.Store))

	limited := router.Group("/", d.RateLimiter.Handler())
	NewRewardRoutes(limited, d.Rewards, d.Authorization)
	NewReferralRoutes(limited, d.Referrals, d.Authorization)

	NewUserRoutes(router.Group("/"), d.Users, d.Authorization)

	// Non-browser clients preflight without an Origin header, which the CORS
	// middleware passes through.
	for _, path := range []string{"/claim-box", "/claim-mining", "/referral", "/user"} {
		router.OPTIONS(path, func(c *gin.Context) {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Status(http.StatusOK)
		})
	}

	return router
}

func health(store Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			logger.Logger().Error("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
