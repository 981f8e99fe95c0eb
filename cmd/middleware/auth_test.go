package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/api/handlers/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubVerifier map[string]Claims

func (s stubVerifier) Verify(_ context.Context, raw string) (Claims, error) {
	c, ok := s[raw]
	if !ok {
		return Claims{}, errors.New("oidc: malformed jwt")
	}
	return c, nil
}

func serve(a *Authenticator, headers map[string]string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", a.RequireAuth(), func(c *gin.Context) {
		id, _ := util.UserIDFromContext(c)
		c.String(http.StatusOK, id)
	})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBearerAuth(t *testing.T) {
	a := NewAuthenticator(stubVerifier{
		"good":  {Sub: "user-1", Azp: "frontend"},
		"other": {Sub: "user-2", Azp: "cli"},
		"nosub": {Azp: "frontend"},
		"slash": {Sub: "a/../b", Azp: "frontend"},
	}, "frontend", nil)

	cases := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"valid", "Bearer good", http.StatusOK, "user-1"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer bad", http.StatusUnauthorized, ""},
		{"wrong client", "Bearer other", http.StatusUnauthorized, ""},
		{"no subject", "Bearer nosub", http.StatusUnauthorized, ""},
		{"path in subject", "Bearer slash", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := map[string]string{}
			if tc.header != "" {
				h["Authorization"] = tc.header
			}
			w := serve(a, h)
			assert.Equal(t, tc.code, w.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}

func TestAnyClientAllowedWithoutConfiguredClient(t *testing.T) {
	a := NewAuthenticator(stubVerifier{"t": {Sub: "user-2", Azp: "cli"}}, "", nil)
	w := serve(a, map[string]string{"Authorization": "Bearer t"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDevHeaderMode(t *testing.T) {
	a := NewAuthenticator(nil, "", nil)

	w := serve(a, map[string]string{DevUserHeader: "dev-user"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dev-user", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(a, nil).Code)

	for _, id := range []string{"alice/../bob", "alice/bob", ".."} {
		assert.Equal(t, http.StatusUnauthorized, serve(a, map[string]string{DevUserHeader: id}).Code, id)
	}
}
