package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	userdomain "github.com/smallbiznis/pitchfund/internal/user/domain"
)

func (s *Server) InvestorPortfolio(c *gin.Context) {
	userID, ok := s.portfolioSubject(c, userdomain.RoleInvestor)
	if !ok {
		return
	}

	resp, err := s.portfolioSvc.Investor(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) BusinessDashboard(c *gin.Context) {
	userID, ok := s.portfolioSubject(c, userdomain.RoleBusiness)
	if !ok {
		return
	}

	resp, err := s.portfolioSvc.Business(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// portfolioSubject is the caller, or for admins the user named by ?user_id=.
func (s *Server) portfolioSubject(c *gin.Context, role userdomain.Role) (snowflake.ID, bool) {
	actor, ok := s.actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return 0, false
	}

	if isAdmin(actor) {
		userID, err := parseOptionalSnowflakeID(c.Query("user_id"))
		if err != nil || userID == nil {
			AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user_id"))
			return 0, false
		}
		return *userID, true
	}

	if actor.Role != role {
		AbortWithError(c, ErrForbidden)
		return 0, false
	}
	return actor.ID, true
}
