package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	authorizationScheme = "Telegram "
	initDataHeader      = "X-Telegram-Init-Data"
)

// InitDataFromHeaders returns launch data sent as "Authorization: Telegram <data>"
// or in the X-Telegram-Init-Data header. Body and query fields take precedence
// and are read by the handlers themselves.
func InitDataFromHeaders(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, authorizationScheme) {
		return strings.TrimPrefix(authHeader, authorizationScheme)
	}
	return c.GetHeader(initDataHeader)
}
