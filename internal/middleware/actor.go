package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/pkg/auth"
)

const (
	HeaderStaffName = "X-Staff-Name"
	ContextActor    = "actor"
)

// Actor resolves the acting staff member from a bearer token, then the
// X-Staff-Name header, then defaultActor. It never rejects a request.
func Actor(tokens *auth.TokenService, defaultActor string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ""
		if token := bearerToken(c.GetHeader("Authorization")); token != "" && tokens != nil {
			claims, err := tokens.ValidateToken(token)
			if err != nil {
				log.Warn().
					Err(err).
					Str("request_id", c.GetString(ContextRequestID)).
					Msg("Ignoring invalid staff token")
			} else {
				actor = claims.Actor()
			}
		}
		if actor == "" {
			actor = strings.TrimSpace(c.GetHeader(HeaderStaffName))
		}
		if actor == "" {
			actor = defaultActor
		}

		c.Set(ContextActor, actor)
		c.Next()
	}
}

// ActorFrom returns the actor stored by Actor.
func ActorFrom(c *gin.Context) string {
	return c.GetString(ContextActor)
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
