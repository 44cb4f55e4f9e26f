package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Keepalive is hit by an external cron to stop the free-tier database from
// being paused for inactivity. It runs a trivial read so the connection is
// actually exercised.
func (s *Server) Keepalive(c *gin.Context) {
	secret := strings.TrimSpace(s.cfg.CronSecret)
	if secret == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "keepalive disabled: CRON_SECRET is not set"})
		return
	}

	auth := c.GetHeader("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == auth || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	if _, err := s.subscriptionRepo.AnyID(c.Request.Context(), nil); err != nil {
		s.log.Error("keepalive probe failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "database probe failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
