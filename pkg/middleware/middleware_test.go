package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims ActorClaims, method jwt.SigningMethod, key interface{}) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func actorRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Actor(testSecret))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, ActorID(c).String())
	})
	return r
}

func TestActorResolvesUserID(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, ActorClaims{
		UserID:           userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}, jwt.SigningMethodHS256, testSecret)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	actorRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != userID.String() {
		t.Fatalf("expected %s, got %s", userID, w.Body.String())
	}
}

func TestActorFallsBackToSubject(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, ActorClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()},
	}, jwt.SigningMethodHS256, testSecret)

	got, err := ParseActorToken(testSecret, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != userID {
		t.Fatalf("expected %s, got %s", userID, got)
	}
}

func TestActorAnonymous(t *testing.T) {
	w := httptest.NewRecorder()
	actorRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	if w.Code != http.StatusOK || w.Body.String() != uuid.Nil.String() {
		t.Fatalf("expected anonymous pass-through, got %d %s", w.Code, w.Body.String())
	}
}

func TestActorWithoutSecretStaysAnonymous(t *testing.T) {
	forged := signToken(t, ActorClaims{UserID: uuid.NewString()}, jwt.SigningMethodHS256, []byte{})

	if _, err := ParseActorToken(nil, forged); err == nil {
		t.Fatal("expected token parsing to fail without a secret")
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Actor(nil))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, ActorID(c).String())
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != uuid.Nil.String() {
		t.Fatalf("expected anonymous actor, got %d %s", w.Code, w.Body.String())
	}
}

func TestActorRejectsBadTokens(t *testing.T) {
	expired := signToken(t, ActorClaims{
		UserID:           uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
	}, jwt.SigningMethodHS256, testSecret)
	wrongKey := signToken(t, ActorClaims{UserID: uuid.NewString()}, jwt.SigningMethodHS256, []byte("other"))
	noUser := signToken(t, ActorClaims{}, jwt.SigningMethodHS256, testSecret)

	cases := map[string]string{
		"not bearer": "Basic abc",
		"garbage":    "Bearer not-a-token",
		"expired":    "Bearer " + expired,
		"wrong key":  "Bearer " + wrongKey,
		"no user":    "Bearer " + noUser,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set("Authorization", header)
			w := httptest.NewRecorder()
			actorRouter().ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name     string
		allowAll bool
		origin   string
		want     string
	}{
		{"listed origin", false, "http://localhost:3000", "http://localhost:3000"},
		{"unlisted origin", false, "https://evil.example", ""},
		{"allow all", true, "https://gm.example", "https://gm.example"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tc.allowAll))
			r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set("Origin", tc.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tc.want {
				t.Fatalf("expected allow origin %q, got %q", tc.want, got)
			}
		})
	}

	r := gin.New()
	r.Use(CORS(false))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/ping", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", w.Code)
	}
}

func TestWriteRateLimiterWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewWriteRateLimiter(nil, 1).Middleware())
	r.POST("/write", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/write", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected pass-through without redis, got %d", i, w.Code)
		}
	}
}

func TestIsReadMethod(t *testing.T) {
	for _, m := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		if !isReadMethod(m) {
			t.Fatalf("expected %s to be a read", m)
		}
	}
	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		if isReadMethod(m) {
			t.Fatalf("expected %s to be a write", m)
		}
	}
}
