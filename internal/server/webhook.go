package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Wompi has shipped the event signature under three different header
// names; accept any of them, preferring the current one.
var signatureHeaders = []string{
	"X-Event-Signature",
	"X-Message-Signature",
	"X-Signature",
}

// IngestWebhook verifies and applies a Wompi transaction event. Duplicate
// deliveries and events without a transaction are acknowledged with 200 so
// the gateway stops retrying.
func (s *Server) IngestWebhook(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "unreadable body"})
		return
	}

	var signature string
	for _, h := range signatureHeaders {
		if v := c.GetHeader(h); v != "" {
			signature = v
			break
		}
	}

	res, err := s.webhookSvc.HandleEvent(c.Request.Context(), rawBody, signature)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	s.log.Info("webhook processed",
		zap.String("transaction_id", res.TransactionID),
		zap.String("status", res.Status),
		zap.Bool("duplicate", res.Duplicate),
		zap.Bool("matched", res.Matched))
	c.JSON(http.StatusOK, gin.H{
		"received":  true,
		"duplicate": res.Duplicate,
	})
}
