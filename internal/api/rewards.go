package api

import (
	"errors"
	"io"
	"net/http"

	"yafs_miniapp/internal/middleware"
	"yafs_miniapp/internal/model"
	"yafs_miniapp/internal/service"
	"yafs_miniapp/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type rewardRoutes struct {
	rs    service.RewardServiceI
	authz *middleware.Authorization
}

func NewRewardRoutes(handler *gin.RouterGroup, rs service.RewardServiceI, authz *middleware.Authorization) {
	r := &rewardRoutes{rs: rs, authz: authz}

	handler.POST("/claim-box", r.claim(model.RewardBox, "next_claim_time", "Failed to update reward"))
	handler.POST("/claim-mining", r.claim(model.RewardMining, "next_mining_time", "Failed to claim mining"))
}

type ClaimRequest struct {
	UserID   UserID `json:"user_id"`
	InitData string `json:"init_data"`
}

func (r *rewardRoutes) claim(kind model.RewardKind, nextKey, failMessage string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		var req ClaimRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			log.Debug("failed to bind claim request", zap.Error(err))
			badRequest(c, "Invalid request body")
			return
		}
		if req.UserID == "" {
			badRequest(c, "Missing user_id")
			return
		}

		identity, _, ok := r.authz.Identify(c, req.UserID.String(), req.InitData)
		if !ok {
			return
		}

		res, err := r.rs.Claim(c.Request.Context(), kind, identity)
		if err != nil {
			storeFailure(c, failMessage, err)
			return
		}

		if !res.Allowed {
			c.JSON(http.StatusOK, gin.H{
				"ok":      false,
				"message": res.Message,
				nextKey:   unixMillisAt(res.NextEligible),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":          true,
			"reward":      res.Reward,
			"total_coins": res.TotalCoins,
			"message":     res.Message,
			nextKey:       unixMillisAt(res.NextEligible),
		})
	}
}
