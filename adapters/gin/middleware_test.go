package authgin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	certkit "github.com/gilbert/firebase-id-token/certs"
	authtesting "github.com/gilbert/firebase-id-token/testing"
	verifykit "github.com/gilbert/firebase-id-token/verify"
)

func newRouter(t *testing.T, p *authtesting.TestProvider) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := certkit.NewStore(p.CertificateURL())
	require.NoError(t, store.RequestIfAbsent(context.Background()))
	v := verifykit.New(store, p.Config())

	r := gin.New()
	r.GET("/me", AuthRequired(v), func(c *gin.Context) {
		uid, ok := UserID(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": uid})
	})
	r.GET("/open", AuthOptional(v), func(c *gin.Context) {
		if uid, ok := UserID(c); ok {
			c.JSON(http.StatusOK, gin.H{"user_id": uid})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": nil})
	})
	return r
}

func TestAuthRequired_ValidToken(t *testing.T) {
	p := authtesting.NewTestProvider()
	defer p.Close()
	r := newRouter(t, p)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+p.CreateToken("user-7"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"user_id":"user-7"}`, rec.Body.String())
}

func TestAuthRequired_MissingToken(t *testing.T) {
	p := authtesting.NewTestProvider()
	defer p.Close()
	r := newRouter(t, p)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequired_BadToken(t *testing.T) {
	p := authtesting.NewTestProvider()
	defer p.Close()
	r := newRouter(t, p)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer aaaaaa")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthOptional_NoToken(t *testing.T) {
	p := authtesting.NewTestProvider()
	defer p.Close()
	r := newRouter(t, p)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"user_id":null}`, rec.Body.String())
}
