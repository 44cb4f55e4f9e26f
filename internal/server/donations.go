package server

import (
	"net/http"

	intakedomain "github.com/causabona/donare/internal/intake/domain"
	"github.com/gin-gonic/gin"
)

// SubmitDonation drives both wizard stages. A draft request persists the
// donor early so an abandoned checkout still leaves a contactable record;
// a confirm request creates the subscription and, when the widget returned
// a token, the initial approved payment.
func (s *Server) SubmitDonation(c *gin.Context) {
	var req intakedomain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "malformed JSON body"})
		return
	}

	res, err := s.intakeSvc.Submit(c.Request.Context(), req)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	body := gin.H{
		"status":  res.Status,
		"donorId": res.DonorID.String(),
	}
	if res.SubscriptionID != 0 {
		body["subscriptionId"] = res.SubscriptionID.String()
		body["reference"] = res.Reference
		body["isRecurring"] = res.Recurring
	}
	c.JSON(http.StatusOK, body)
}
