package api

import (
	"net/http"
	"time"

	"yafs_miniapp/internal/middleware"
	"yafs_miniapp/internal/service"

	"github.com/gin-gonic/gin"
)

type userRoutes struct {
	us    service.UserServiceI
	authz *middleware.Authorization
}

func NewUserRoutes(handler *gin.RouterGroup, us service.UserServiceI, authz *middleware.Authorization) {
	r := &userRoutes{us: us, authz: authz}

	handler.GET("/user", r.GetUser)
}

type UserResponse struct {
	ID             string     `json:"id"`
	TotalCoins     int64      `json:"total_coins"`
	LastClaim      *time.Time `json:"last_claim"`
	NextClaimTime  *int64     `json:"next_claim_time"`
	LastMining     *time.Time `json:"last_mining"`
	NextMiningTime *int64     `json:"next_mining_time"`
	CreatedAt      *time.Time `json:"created_at"`
}

func (r *userRoutes) GetUser(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		badRequest(c, "Missing user id")
		return
	}

	identity, _, ok := r.authz.Identify(c, id, c.Query("init_data"))
	if !ok {
		return
	}

	status, err := r.us.Status(c.Request.Context(), identity)
	if err != nil {
		storeFailure(c, "Database error", err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{
		ID:             status.ID,
		TotalCoins:     status.TotalCoins,
		LastClaim:      status.LastClaim,
		NextClaimTime:  unixMillis(status.NextClaimAt),
		LastMining:     status.LastMining,
		NextMiningTime: unixMillis(status.NextMiningAt),
		CreatedAt:      status.CreatedAt,
	})
}
