package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// Заголовок, в котором Mini App передает сырую init data
	InitDataHeader = "init_data"

	bearerPrefix = "bearer "
	// Authorization: tma <init data>, схема из документации Telegram Mini Apps
	tmaPrefix = "tma "
)

func authorizationValue(c *gin.Context, prefix string) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func bearerToken(c *gin.Context) string {
	return authorizationValue(c, bearerPrefix)
}

func initDataFromRequest(c *gin.Context) string {
	if raw := strings.TrimSpace(c.GetHeader(InitDataHeader)); raw != "" {
		return raw
	}
	return authorizationValue(c, tmaPrefix)
}
