package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newMiddlewareRouter(p *Provider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/contacts", RequireSession(p), func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, session.UserID+" "+SessionTokenFrom(c))
	})
	return router
}

func TestRequireSessionRedirects(t *testing.T) {
	p, _, _ := signedUp(t, time.Hour)
	router := newMiddlewareRouter(p)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/contacts", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, EntryPoint, w.Header().Get("Location"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/contacts", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestRequireSessionWithBearer(t *testing.T) {
	p, token, session := signedUp(t, time.Hour)
	router := newMiddlewareRouter(p)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/contacts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session.UserID+" "+token, w.Body.String())
}

func TestRequireSessionWithCookie(t *testing.T) {
	p, token, session := signedUp(t, time.Hour)
	router := newMiddlewareRouter(p)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/contacts", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session.UserID+" "+token, w.Body.String())
}

func TestRequireSessionAfterSignOut(t *testing.T) {
	p, token, _ := signedUp(t, time.Hour)
	router := newMiddlewareRouter(p)
	assert.NoError(t, p.SignOut(token))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/contacts", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
}
