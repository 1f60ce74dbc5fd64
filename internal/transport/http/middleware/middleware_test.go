package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio-agent/internal/pkg/jwtutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDGeneratesAndEchoes(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = c.GetString(ContextRequestIDKey)
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("generated id %q, header %q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if seen != "abc-123" {
		t.Fatalf("inbound id not reused: %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 65))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if len(seen) == 65 {
		t.Fatal("oversized inbound id must be replaced")
	}
}

func TestAuthJWT(t *testing.T) {
	const secret = "test-secret"
	r := gin.New()
	r.GET("/me", AuthJWT(secret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUsernameKey))
	})

	valid, err := jwtutil.GenerateToken(secret, time.Minute, "admin")
	if err != nil {
		t.Fatal(err)
	}
	forged, err := jwtutil.GenerateToken("other-secret", time.Minute, "admin")
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"bad signature", "Bearer " + forged, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if tc.status == http.StatusOK && rec.Body.String() != "admin" {
				t.Fatalf("username = %q", rec.Body.String())
			}
		})
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://portfolio.example"}))
	r.POST("/api/agent", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/agent", nil)
	req.Header.Set("Origin", "https://portfolio.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://portfolio.example" {
		t.Fatalf("Allow-Origin = %q", got)
	}
}
