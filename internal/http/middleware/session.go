package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionCookieName = "convert_toolkit"

	sessionKeyClient = "client_id"
	sessionKeyToken  = "access_token"
	sessionMaxAge    = 30 * 24 * 60 * 60
)

// Sessions installs the signed cookie store and makes sure every client has
// a stable id. The id owns the client's transient download handles.
func Sessions(secret string, secure bool) []gin.HandlerFunc {
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})

	return []gin.HandlerFunc{
		sessions.Sessions(SessionCookieName, store),
		func(ctx *gin.Context) {
			session := sessions.Default(ctx)
			if id, ok := session.Get(sessionKeyClient).(string); !ok || id == "" {
				session.Set(sessionKeyClient, uuid.New().String())
				_ = session.Save()
			}
			ctx.Next()
		},
	}
}

// ClientID returns the id of the calling client.
func ClientID(ctx *gin.Context) string {
	id, _ := sessions.Default(ctx).Get(sessionKeyClient).(string)
	return id
}

// AuthToken returns the bearer token of the request, falling back to the
// token stored in the session cookie.
func AuthToken(ctx *gin.Context) string {
	if header := ctx.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	token, _ := sessions.Default(ctx).Get(sessionKeyToken).(string)
	return token
}

func SetAuthToken(ctx *gin.Context, token string) error {
	session := sessions.Default(ctx)
	session.Set(sessionKeyToken, token)
	return session.Save()
}

func ClearAuthToken(ctx *gin.Context) error {
	session := sessions.Default(ctx)
	session.Delete(sessionKeyToken)
	return session.Save()
}
