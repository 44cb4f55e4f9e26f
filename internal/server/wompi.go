package server

import (
	"net/http"

	"github.com/causabona/donare/internal/wompi"
	"github.com/gin-gonic/gin"
)

type signatureRequest struct {
	Reference     string `json:"reference"`
	AmountInCents int64  `json:"amountInCents"`
	Currency      string `json:"currency"`
}

// IntegritySignature computes the checkout widget's integrity hash
// server-side so the secret never reaches the browser.
func (s *Server) IntegritySignature(c *gin.Context) {
	var req signatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "malformed JSON body"})
		return
	}
	if req.Reference == "" || req.AmountInCents <= 0 || req.Currency == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "reference, amountInCents and currency are required"})
		return
	}
	if err := s.env.ValidateIntegritySecret(); err != nil {
		s.abortWithError(c, err)
		return
	}

	sig := wompi.IntegritySignature(req.Reference, req.AmountInCents, req.Currency, s.env.IntegritySecret)
	c.JSON(http.StatusOK, gin.H{"signature": sig})
}

// WidgetConfig exposes the public half of the gateway configuration for
// the checkout page.
func (s *Server) WidgetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"publicKey": s.env.PublicKey,
		"widgetUrl": wompi.WidgetURL,
		"env":       s.env.Name,
	})
}
