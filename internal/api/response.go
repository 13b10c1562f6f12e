package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"yafs_miniapp/internal/middleware"
	"yafs_miniapp/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// UserID accepts both "123" and 123 in request bodies since clients send
// Telegram ids as numbers.
type UserID string

func (id *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}

	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("user id must be a string or an integer: %w", err)
	}
	// Canonical decimal form, so 7 and 007 name the same user.
	*id = UserID(strconv.FormatInt(n, 10))
	return nil
}

func (id UserID) String() string {
	return string(id)
}

// unixMillis renders t as Unix milliseconds, or null.
func unixMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func unixMillisAt(t time.Time) *int64 {
	return unixMillis(&t)
}

func storeFailure(c *gin.Context, message string, err error) {
	logger.Logger().Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", c.GetString(middleware.RequestIDKey)))
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
