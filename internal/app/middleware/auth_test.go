package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folivafy/folivafy/internal/domain/auth"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func authTestRouter(issuer string) (*gin.Engine, *auth.Caller) {
	gin.SetMode(gin.TestMode)
	var seen auth.Caller
	router := gin.New()
	router.GET("/probe", Auth(testSecret, issuer), func(c *gin.Context) {
		caller, _ := GetCaller(c)
		seen = caller
		c.String(http.StatusOK, "ok")
	})
	return router, &seen
}

func TestAuthExtractsCaller(t *testing.T) {
	userID := uuid.New()
	token := signedToken(t, jwt.MapClaims{
		"sub":                userID.String(),
		"preferred_username": "alice",
		"exp":                time.Now().Add(time.Hour).Unix(),
		"realm_access": map[string]interface{}{
			"roles": []interface{}{"C_SHAPES_READER", "C_SHAPES_EDITOR"},
		},
	})

	router, seen := authTestRouter("")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, seen.ID())
	assert.Equal(t, "alice", seen.Username())
	assert.True(t, seen.IsCollectionEditor("shapes"))
	assert.True(t, seen.IsCollectionReader("shapes"))
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	router, _ := authTestRouter("")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsBadSignature(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	router, _ := authTestRouter("")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthEnforcesIssuer(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"sub": uuid.New().String(),
		"iss": "https://other.example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	router, _ := authTestRouter("https://idp.example.com")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsNonUUIDSubject(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"sub": "not-a-uuid",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	router, _ := authTestRouter("")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSpanIDGeneratedWhenMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/probe", SpanID(), func(c *gin.Context) {
		c.String(http.StatusOK, GetSpanID(c))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))

	assert.NotEmpty(t, w.Header().Get(SpanIDHeader))
	assert.Equal(t, w.Header().Get(SpanIDHeader), w.Body.String())
}

func TestSpanIDEchoesClientValue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/probe", SpanID(), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(SpanIDHeader, "span-123")
	router.ServeHTTP(w, req)

	assert.Equal(t, "span-123", w.Header().Get(SpanIDHeader))
}
