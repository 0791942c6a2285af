package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	investmentdomain "github.com/smallbiznis/pitchfund/internal/investment/domain"
)

func (s *Server) Invest(c *gin.Context) {
	actor, ok := s.actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	pitchID := strings.TrimSpace(c.Param("id"))
	resp, err := s.investmentSvc.Invest(c.Request.Context(), investmentdomain.InvestRequest{
		PitchID:    pitchID,
		InvestorID: actor.ID,
		Amount:     req.Amount,
	})
	if err != nil {
		if errors.Is(err, investmentdomain.ErrOverTarget) || errors.Is(err, investmentdomain.ErrTierMismatch) {
			err = s.withFundingDetails(c, pitchID, err)
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// withFundingDetails tells the investor which amounts the pitch still accepts.
func (s *Server) withFundingDetails(c *gin.Context, pitchID string, err error) error {
	state, stateErr := s.pitchSvc.FundingState(c.Request.Context(), pitchID)
	if stateErr != nil {
		return err
	}
	return withDetails(err, map[string]any{
		"remaining":          state.Remaining,
		"minimum_investment": state.MinimumInvestment,
		"maximum_investment": state.MaximumInvestment,
	})
}

func (s *Server) ListInvestments(c *gin.Context) {
	actor, ok := s.actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.investmentSvc.List(c.Request.Context(), investmentdomain.ListInvestmentsRequest{
		PitchID: strings.TrimSpace(c.Param("id")),
		ActorID: actor.ID,
		IsAdmin: isAdmin(actor),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isInvestmentValidationError(err error) bool {
	switch {
	case errors.Is(err, investmentdomain.ErrInvalidAmount),
		errors.Is(err, investmentdomain.ErrInvalidPitch),
		errors.Is(err, investmentdomain.ErrInvalidInvestor):
		return true
	default:
		return false
	}
}
