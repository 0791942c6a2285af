package server

import (
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pitchfund/internal/actorcontext"
	obscontext "github.com/smallbiznis/pitchfund/internal/observability/context"
	userdomain "github.com/smallbiznis/pitchfund/internal/user/domain"
)

// HeaderUserID carries the identity asserted by the upstream auth gateway.
const HeaderUserID = "X-User-ID"

const contextUserKey = "user"

// Identity resolves the gateway identity header to a known user and stores
// the actor on the request context.
func (s *Server) Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		user, err := s.userSvc.Get(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, userdomain.ErrNotFound) {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			AbortWithError(c, err)
			return
		}

		ctx := actorcontext.WithActor(c.Request.Context(), actorcontext.Actor{ID: user.ID, Role: user.Role})
		ctx = obscontext.WithActor(ctx, string(user.Role), user.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextUserKey, user)
		c.Next()
	}
}

func (s *Server) actorFromContext(c *gin.Context) (actorcontext.Actor, bool) {
	if c == nil || c.Request == nil {
		return actorcontext.Actor{}, false
	}
	return actorcontext.FromContext(c.Request.Context())
}

func isAdmin(actor actorcontext.Actor) bool {
	return actor.Role == userdomain.RoleAdmin
}
