package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"repairhub/internal/domain"
)

type loyaltyEventReq struct {
	UserID   string           `json:"user_id" binding:"required"`
	Kind     domain.EventKind `json:"kind" binding:"required,oneof=referral review"`
	SourceID string           `json:"source_id" binding:"required"`
}

type loyaltyEventResp struct {
	Credited bool                   `json:"credited"`
	Points   int64                  `json:"points"`
	Entry    *domain.LedgerEntry    `json:"entry,omitempty"`
	Account  *domain.LoyaltyAccount `json:"account"`
}

type eligibilityResp struct {
	PostalCode string `json:"postal_code"`
	Eligible   bool   `json:"eligible"`
}

// @Summary Own loyalty summary
// @Tags loyalty
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.LoyaltySummary
// @Router /loyalty/me [get]
func (s *Server) myLoyalty(c *gin.Context) {
	sum, err := s.loyalty.Summary(c.Request.Context(), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// @Summary Loyalty summary of a user
// @Tags loyalty
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "User ID"
// @Success 200 {object} service.LoyaltySummary
// @Failure 403 {object} errorResponse
// @Router /loyalty/{user_id} [get]
func (s *Server) userLoyalty(c *gin.Context) {
	sum, err := s.loyalty.Summary(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// @Summary Record a referral or review event
// @Tags loyalty
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body loyaltyEventReq true "Event"
// @Success 201 {object} loyaltyEventResp
// @Success 200 {object} loyaltyEventResp "already recorded"
// @Failure 400 {object} errorResponse
// @Router /loyalty/events [post]
func (s *Server) recordLoyaltyEvent(c *gin.Context) {
	var req loyaltyEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, bindError(err))
		return
	}
	res, err := s.loyalty.RecordExternalEvent(c.Request.Context(), req.UserID, req.Kind, req.SourceID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	status := http.StatusOK
	if res.Credited {
		status = http.StatusCreated
	}
	c.JSON(status, loyaltyEventResp{Credited: res.Credited, Points: res.Account.Points, Entry: res.Entry, Account: res.Account})
}

// @Summary Rewards catalog
// @Tags loyalty
// @Produce json
// @Success 200 {array} domain.RewardTier
// @Router /rewards [get]
func (s *Server) listRewards(c *gin.Context) {
	c.JSON(http.StatusOK, s.loyalty.Catalog())
}

// @Summary Check whether a postal code is served
// @Tags eligibility
// @Produce json
// @Param postal_code path string true "Postal code"
// @Success 200 {object} eligibilityResp
// @Failure 429 {object} errorResponse
// @Router /eligibility/{postal_code} [get]
func (s *Server) checkEligibility(c *gin.Context) {
	code := c.Param("postal_code")
	c.JSON(http.StatusOK, eligibilityResp{PostalCode: code, Eligible: s.eligibility.IsEligible(code)})
}
