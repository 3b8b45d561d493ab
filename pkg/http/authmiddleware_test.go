package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	sdkauth "github.com/modelcontextprotocol/go-sdk/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/auth"
)

const (
	testPath       = "/mcp"
	testOpaque     = "opaque-token-123"
	testObjectID   = "11111111-2222-3333-4444-555555555555"
	authHeaderName = "Authorization"
)

func mintJWT(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

// captureHandler records the token info and assertion seen downstream.
type captureHandler struct {
	called bool
	info   *sdkauth.TokenInfo
	owner  string
}

func (h *captureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.info = sdkauth.TokenInfoFromContext(r.Context())
	h.owner = Owner(r)
	w.WriteHeader(http.StatusOK)
}

func newRequest(bearer string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, testPath, http.NoBody)
	if bearer != "" {
		req.Header.Set(authHeaderName, "Bearer "+bearer)
	}
	return req
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "Bearer abc", want: "abc"},
		{header: "bearer abc", want: "abc"},
		{header: "BEARER   abc", want: "abc"},
		{header: "Basic abc", want: ""},
		{header: "Bearer", want: ""},
		{header: "Bearer a b", want: ""},
		{header: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, testPath, http.NoBody)
			req.Header.Set(authHeaderName, tt.header)
			assert.Equal(t, tt.want, BearerToken(req))
		})
	}
}

func TestVerifyBearer(t *testing.T) {
	t.Run("opaque", func(t *testing.T) {
		info, err := VerifyBearer(context.Background(), testOpaque, nil)
		require.NoError(t, err)
		assert.Equal(t, testOpaque, Assertion(info))
		assert.Empty(t, info.UserID)
		assert.True(t, info.Expiration.After(time.Now()))
	})

	t.Run("jwt", func(t *testing.T) {
		exp := time.Now().Add(10 * time.Minute).Truncate(time.Second)
		raw := mintJWT(t, jwt.MapClaims{"oid": testObjectID, "exp": exp.Unix()})

		info, err := VerifyBearer(context.Background(), raw, nil)
		require.NoError(t, err)
		assert.Equal(t, raw, Assertion(info))
		assert.Equal(t, testObjectID, info.UserID)
		assert.True(t, exp.Equal(info.Expiration))
	})
}

func TestAssertion_Nil(t *testing.T) {
	assert.Empty(t, Assertion(nil))
	assert.Empty(t, Assertion(&sdkauth.TokenInfo{}))
}

func TestRequestIdentity_External(t *testing.T) {
	t.Run("bearer attached", func(t *testing.T) {
		inner := &captureHandler{}
		rr := httptest.NewRecorder()

		RequestIdentity(auth.ModeExternal)(inner).ServeHTTP(rr, newRequest(testOpaque))

		require.True(t, inner.called)
		assert.Equal(t, testOpaque, Assertion(inner.info))
	})

	t.Run("no bearer proceeds anonymously", func(t *testing.T) {
		inner := &captureHandler{}
		rr := httptest.NewRecorder()

		RequestIdentity(auth.ModeExternal)(inner).ServeHTTP(rr, newRequest(""))

		require.True(t, inner.called)
		assert.Nil(t, inner.info)
	})

	t.Run("expired jwt rejected", func(t *testing.T) {
		inner := &captureHandler{}
		rr := httptest.NewRecorder()
		raw := mintJWT(t, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Minute).Unix()})

		RequestIdentity(auth.ModeExternal)(inner).ServeHTTP(rr, newRequest(raw))

		assert.False(t, inner.called)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRequestIdentity_OnBehalfOf(t *testing.T) {
	t.Run("missing bearer is 400", func(t *testing.T) {
		inner := &captureHandler{}
		rr := httptest.NewRecorder()

		RequestIdentity(auth.ModeOnBehalfOf)(inner).ServeHTTP(rr, newRequest(""))

		assert.False(t, inner.called)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, MissingUserTokenMessage, strings.TrimSpace(rr.Body.String()))
	})

	t.Run("bearer attached with owner", func(t *testing.T) {
		inner := &captureHandler{}
		rr := httptest.NewRecorder()
		raw := mintJWT(t, jwt.MapClaims{"oid": testObjectID, "exp": time.Now().Add(time.Hour).Unix()})

		RequestIdentity(auth.ModeOnBehalfOf)(inner).ServeHTTP(rr, newRequest(raw))

		require.True(t, inner.called)
		assert.Equal(t, raw, Assertion(inner.info))
		assert.Equal(t, testObjectID, inner.owner)
	})
}

func TestRequestIdentity_ProcessModesIgnoreBearer(t *testing.T) {
	for _, mode := range []auth.Mode{auth.ModeInteractive, auth.ModeServiceChainCLI, auth.ModeServiceChainEnv} {
		t.Run(string(mode), func(t *testing.T) {
			inner := &captureHandler{}
			rr := httptest.NewRecorder()

			RequestIdentity(mode)(inner).ServeHTTP(rr, newRequest(testOpaque))

			require.True(t, inner.called)
			assert.Nil(t, inner.info)
		})
	}
}

func TestOwner_FromRawBearer(t *testing.T) {
	raw := mintJWT(t, jwt.MapClaims{"sub": "subject-only"})
	assert.Equal(t, "subject-only", Owner(newRequest(raw)))
	assert.Empty(t, Owner(newRequest(testOpaque)))
	assert.Empty(t, Owner(newRequest("")))
}

func TestRequestIdentity_ExpiredJWTRejected(t *testing.T) {
	for _, mode := range []auth.Mode{auth.ModeExternal, auth.ModeOnBehalfOf} {
		t.Run(string(mode), func(t *testing.T) {
			inner := &captureHandler{}
			rr := httptest.NewRecorder()
			raw := mintJWT(t, jwt.MapClaims{"oid": testObjectID, "exp": time.Now().Add(-time.Minute).Unix()})

			RequestIdentity(mode)(inner).ServeHTTP(rr, newRequest(raw))

			assert.False(t, inner.called)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Contains(t, rr.Body.String(), "token expired")
		})
	}
}
