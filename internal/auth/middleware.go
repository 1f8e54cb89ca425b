package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// CookieName is the name of the cookie that carries the session token.
	CookieName = "session"

	// EntryPoint is where callers without a session are sent.
	EntryPoint = "/auth"

	sessionKey = "contacthub.session"
	tokenKey   = "contacthub.token"
)

// TokenFrom returns the session token of the request, taken from the Authorization
// header ("Bearer <token>") or from the session cookie.
func TokenFrom(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	token, err := c.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return token
}

// RequireSession lets a request pass only with an active session. Otherwise the caller is
// redirected to the entry point and the request is aborted; this is not an error.
func RequireSession(source SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFrom(c)
		session, ok := source.Current(token)
		if !ok {
			c.Redirect(http.StatusFound, EntryPoint)
			c.Abort()
			return
		}
		c.Set(sessionKey, session)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// SessionFrom returns the session stored by RequireSession.
func SessionFrom(c *gin.Context) (Session, bool) {
	value, ok := c.Get(sessionKey)
	if !ok {
		return Session{}, false
	}
	session, ok := value.(Session)
	return session, ok
}

// SessionTokenFrom returns the token stored by RequireSession.
func SessionTokenFrom(c *gin.Context) string {
	return c.GetString(tokenKey)
}
