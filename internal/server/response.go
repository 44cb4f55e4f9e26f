package server

import (
	"errors"
	"net/http"

	intakedomain "github.com/causabona/donare/internal/intake/domain"
	"github.com/causabona/donare/internal/webhook"
	"github.com/causabona/donare/internal/wompi"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// abortWithError maps domain errors onto the HTTP taxonomy: 400 for
// validation and malformed/missing-signature/expired input, 401 for a
// signature mismatch, 500 for configuration and persistence failures.
// Configuration errors keep their operator-actionable message; everything
// else gets a generic body so internals never leak.
func (s *Server) abortWithError(c *gin.Context, err error) {
	var validationErr *intakedomain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "invalid donation payload",
			"issues":  validationErr.Issues,
		})

	case errors.Is(err, webhook.ErrMissingSignature):
		c.JSON(http.StatusBadRequest, gin.H{"message": "missing webhook signature"})
	case errors.Is(err, webhook.ErrEventExpired):
		c.JSON(http.StatusBadRequest, gin.H{"message": "event expired"})
	case errors.Is(err, webhook.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
	case errors.Is(err, webhook.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid signature"})

	case errors.Is(err, webhook.ErrMissingSecret),
		errors.Is(err, wompi.ErrMissingSecret),
		errors.Is(err, wompi.ErrSecretEnvMismatch):
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})

	default:
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}
