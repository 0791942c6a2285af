package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	pitchdomain "github.com/smallbiznis/pitchfund/internal/pitch/domain"
	"github.com/smallbiznis/pitchfund/pkg/db/pagination"
)

func (s *Server) CreatePitch(c *gin.Context) {
	actor, ok := s.actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req pitchdomain.CreatePitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.BusinessID = actor.ID
	req.Title = strings.TrimSpace(req.Title)
	req.Summary = strings.TrimSpace(req.Summary)

	resp, err := s.pitchSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPitches(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status     string `form:"status"`
		BusinessID string `form:"business_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.pitchSvc.List(c.Request.Context(), pitchdomain.ListPitchRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Status:     strings.ToLower(strings.TrimSpace(query.Status)),
		BusinessID: strings.TrimSpace(query.BusinessID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Pitches, "page_info": resp.PageInfo})
}

// GetPitch accepts either the numeric id or the slug.
func (s *Server) GetPitch(c *gin.Context) {
	ref := strings.TrimSpace(c.Param("id"))

	var (
		resp pitchdomain.Pitch
		err  error
	)
	if id, parseErr := snowflake.ParseString(ref); parseErr == nil && id != 0 {
		resp, err = s.pitchSvc.Get(c.Request.Context(), ref)
	} else {
		resp, err = s.pitchSvc.GetBySlug(c.Request.Context(), ref)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetFundingState(c *gin.Context) {
	resp, err := s.pitchSvc.FundingState(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReplaceTiers(c *gin.Context) {
	actor, ok := s.actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req pitchdomain.ReplaceTiersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.PitchID = strings.TrimSpace(c.Param("id"))
	req.ActorID = actor.ID

	resp, err := s.pitchSvc.ReplaceTiers(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PublishPitch(c *gin.Context) {
	req, ok := s.pitchAction(c)
	if !ok {
		return
	}

	resp, err := s.pitchSvc.Publish(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ClosePitch(c *gin.Context) {
	req, ok := s.pitchAction(c)
	if !ok {
		return
	}

	resp, err := s.pitchSvc.Close(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AnalyzePitch(c *gin.Context) {
	req, ok := s.pitchAction(c)
	if !ok {
		return
	}

	resp, err := s.pitchSvc.AttachAnalysis(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) pitchAction(c *gin.Context) (pitchdomain.PitchActionRequest, bool) {
	actor, ok := s.actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return pitchdomain.PitchActionRequest{}, false
	}
	return pitchdomain.PitchActionRequest{
		PitchID: strings.TrimSpace(c.Param("id")),
		ActorID: actor.ID,
	}, true
}

func isPitchValidationError(err error) bool {
	switch {
	case errors.Is(err, pitchdomain.ErrInvalidID),
		errors.Is(err, pitchdomain.ErrInvalidTitle),
		errors.Is(err, pitchdomain.ErrInvalidTarget),
		errors.Is(err, pitchdomain.ErrInvalidProfitShare),
		errors.Is(err, pitchdomain.ErrInvalidEndDate),
		errors.Is(err, pitchdomain.ErrInvalidInterval),
		errors.Is(err, pitchdomain.ErrInvalidStatus),
		errors.Is(err, pitchdomain.ErrInvalidPageToken),
		errors.Is(err, pitchdomain.ErrInvalidTiers):
		return true
	default:
		return false
	}
}
