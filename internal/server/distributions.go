package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	distributiondomain "github.com/smallbiznis/pitchfund/internal/distribution/domain"
)

func (s *Server) PreviewDistribution(c *gin.Context) {
	req, ok := s.declareRequest(c)
	if !ok {
		return
	}

	resp, err := s.distributionSvc.Preview(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeclareDistribution(c *gin.Context) {
	req, ok := s.declareRequest(c)
	if !ok {
		return
	}

	resp, err := s.distributionSvc.Declare(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) declareRequest(c *gin.Context) (distributiondomain.DeclareRequest, bool) {
	actor, ok := s.actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return distributiondomain.DeclareRequest{}, false
	}

	var body amountRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return distributiondomain.DeclareRequest{}, false
	}

	return distributiondomain.DeclareRequest{
		PitchID: strings.TrimSpace(c.Param("id")),
		ActorID: actor.ID,
		Amount:  body.Amount,
	}, true
}

func (s *Server) ListDistributions(c *gin.Context) {
	actor, ok := s.actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.distributionSvc.ListByPitch(c.Request.Context(), distributiondomain.ListRequest{
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

func (s *Server) GetDistribution(c *gin.Context) {
	req, ok := s.distributionRequest(c)
	if !ok {
		return
	}

	resp, err := s.distributionSvc.Get(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDistributionStatement(c *gin.Context) {
	if s.statementSvc == nil {
		AbortWithError(c, distributiondomain.ErrStatementUnavailable)
		return
	}

	req, ok := s.distributionRequest(c)
	if !ok {
		return
	}

	pdf, filename, err := s.statementSvc.Statement(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (s *Server) distributionRequest(c *gin.Context) (distributiondomain.GetRequest, bool) {
	actor, ok := s.actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return distributiondomain.GetRequest{}, false
	}
	return distributiondomain.GetRequest{
		ID:      strings.TrimSpace(c.Param("id")),
		ActorID: actor.ID,
		IsAdmin: isAdmin(actor),
	}, true
}

func isDistributionValidationError(err error) bool {
	switch {
	case errors.Is(err, distributiondomain.ErrInvalidID),
		errors.Is(err, distributiondomain.ErrInvalidPitch),
		errors.Is(err, distributiondomain.ErrInvalidProfitAmount),
		errors.Is(err, distributiondomain.ErrInvalidProfitShare):
		return true
	default:
		return false
	}
}
