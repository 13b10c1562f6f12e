package middleware

import (
	"errors"
	"net/http"

	"yafs_miniapp/pkg/auth"
	"yafs_miniapp/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	IdentityKey     = "identity"
	TelegramUserKey = "telegram_user"
)

type Authorization struct {
	authenticator *auth.Authenticator
}

func NewAuthorization(authenticator *auth.Authenticator) *Authorization {
	return &Authorization{
		authenticator: authenticator,
	}
}

func (a *Authorization) IsDemoID(id string) bool {
	return a.authenticator.IsDemoID(id)
}

// Identify resolves the caller from the claimed id and launch data, falling
// back to the launch data headers. On failure it aborts the request with the
// matching status and returns false.
func (a *Authorization) Identify(c *gin.Context, claimedID, initData string) (auth.Identity, *auth.TelegramUserData, bool) {
	if initData == "" {
		initData = auth.InitDataFromHeaders(c)
	}

	identity, user, err := a.authenticator.Resolve(claimedID, initData)
	if err != nil {
		a.abort(c, err)
		return auth.Identity{}, nil, false
	}

	c.Set(IdentityKey, identity)
	if user != nil {
		c.Set(TelegramUserKey, user)
	}
	return identity, user, true
}

// Verify checks launch data without the demo bypass.
func (a *Authorization) Verify(c *gin.Context, initData string) (*auth.TelegramUserData, bool) {
	if initData == "" {
		initData = auth.InitDataFromHeaders(c)
	}

	user, err := a.authenticator.Verify(initData)
	if err != nil {
		a.abort(c, err)
		return nil, false
	}

	c.Set(TelegramUserKey, user)
	return user, true
}

func (a *Authorization) abort(c *gin.Context, err error) {
	log := logger.Logger()

	switch {
	case errors.Is(err, auth.ErrNotConfigured):
		log.Error("telegram bot token is not configured")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Server configuration error",
			"message": "Authentication service unavailable. Please contact support.",
		})
	case errors.Is(err, auth.ErrAuthRequired):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	default:
		log.Info("rejected telegram launch data", zap.String("ip", c.ClientIP()))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication"})
	}
}
