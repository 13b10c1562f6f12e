package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"yafs_miniapp/internal/middleware"
	"yafs_miniapp/internal/model"
	"yafs_miniapp/internal/service"
	"yafs_miniapp/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// referralStartParam prefixes the referrer id in invite deep links
// (t.me/<bot>?startapp=ref_<id>).
const referralStartParam = "ref_"

type referralRoutes struct {
	rs    service.ReferralServiceI
	authz *middleware.Authorization
}

func NewReferralRoutes(handler *gin.RouterGroup, rs service.ReferralServiceI, authz *middleware.Authorization) {
	r := &referralRoutes{rs: rs, authz: authz}

	handler.GET("/referral", r.ListReferrals)
	handler.POST("/referral", r.CreateReferral)
}

type ReferralResponse struct {
	ID             uuid.UUID `json:"id"`
	ReferrerID     string    `json:"referrer_id"`
	ReferredUserID string    `json:"referred_user_id"`
	BonusAmount    int64     `json:"bonus_amount"`
	CreatedAt      time.Time `json:"created_at"`
}

func (r *referralRoutes) ListReferrals(c *gin.Context) {
	referrerID := c.Query("referrer_id")
	if referrerID == "" {
		badRequest(c, "Missing referrer_id")
		return
	}

	identity, _, ok := r.authz.Identify(c, referrerID, c.Query("init_data"))
	if !ok {
		return
	}

	refs, err := r.rs.List(c.Request.Context(), identity)
	if err != nil {
		storeFailure(c, "Failed to fetch referrals", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"referrals": toReferralResponses(refs),
	})
}

type CreateReferralRequest struct {
	ReferrerID     UserID `json:"referrer_id"`
	ReferredUserID UserID `json:"referred_user_id"`
	InitData       string `json:"init_data"`
}

// CreateReferral trusts a demo referrer as is. Otherwise the launch data must
// belong to the referred user, who is the one opening the invite.
func (r *referralRoutes) CreateReferral(c *gin.Context) {
	log := logger.Logger()

	var req CreateReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Debug("failed to bind referral request", zap.Error(err))
		badRequest(c, "Invalid request body")
		return
	}

	referrerID := req.ReferrerID.String()
	referredID := req.ReferredUserID.String()
	if referredID == "" {
		badRequest(c, "Missing required fields")
		return
	}

	verified := false
	if referrerID == "" {
		// Fall back to the invite link the Mini App was opened with.
		user, ok := r.authz.Verify(c, req.InitData)
		if !ok {
			return
		}
		referrerID, ok = strings.CutPrefix(user.StartParam, referralStartParam)
		if !ok || referrerID == "" {
			badRequest(c, "Missing required fields")
			return
		}
		if strconv.FormatInt(user.ID, 10) != referredID {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		verified = true
	}

	if referrerID == referredID {
		badRequest(c, "Cannot refer yourself")
		return
	}

	if !verified && !r.authz.IsDemoID(referrerID) {
		user, ok := r.authz.Verify(c, req.InitData)
		if !ok {
			return
		}
		if strconv.FormatInt(user.ID, 10) != referredID {
			log.Info("referral launch data does not belong to the referred user",
				zap.Int64("telegram_id", user.ID),
				zap.String("referred_user_id", referredID))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
	}

	res, err := r.rs.Refer(c.Request.Context(), referrerID, referredID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfReferral):
			badRequest(c, "Cannot refer yourself")
		case errors.Is(err, service.ErrAlreadyReferred):
			badRequest(c, "Already referred this user")
		case errors.Is(err, service.ErrMissingReferral):
			badRequest(c, "Missing required fields")
		default:
			storeFailure(c, "Failed to record referral", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"message": res.Message,
		"bonus":   res.Bonus,
	})
}

func toReferralResponses(refs []*model.Referral) []ReferralResponse {
	out := make([]ReferralResponse, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ReferralResponse{
			ID:             ref.ID,
			ReferrerID:     ref.ReferrerID,
			ReferredUserID: ref.ReferredUserID,
			BonusAmount:    ref.BonusAmount,
			CreatedAt:      ref.CreatedAt,
		})
	}
	return out
}
