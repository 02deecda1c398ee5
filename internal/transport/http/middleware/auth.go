package middleware

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"postboard/internal/app"
	"postboard/internal/transport/http/response"
)

const ContextCallerKey = "caller"

type TokenValidator interface {
	Validate(ctx context.Context, plain string) (*app.Caller, error)
}

// AuthToken resolves the bearer token to an app.Caller. Requests without a
// valid token are rejected with 401 before any handler runs.
func AuthToken(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Unauthenticated(c)
			return
		}

		caller, err := tokens.Validate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, app.ErrInvalidToken) {
				log.Printf("validate token failed: %v", err)
				response.ServerError(c)
				return
			}
			response.Unauthenticated(c)
			return
		}

		c.Set(ContextCallerKey, caller)
		c.Next()
	}
}

// CallerFrom returns the caller stored by AuthToken.
func CallerFrom(c *gin.Context) (*app.Caller, bool) {
	v, exists := c.Get(ContextCallerKey)
	if !exists {
		return nil, false
	}
	caller, ok := v.(*app.Caller)
	return caller, ok && caller != nil
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
