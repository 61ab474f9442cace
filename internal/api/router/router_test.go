package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/tradeengage/jobrouting/internal/api/handler"
	"github.com/tradeengage/jobrouting/internal/matching"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDB struct {
	err error
}

func (f *fakeDB) HealthCheck(_ context.Context) error { return f.err }

func testDeps(db handler.HealthChecker) *handler.Dependencies {
	return &handler.Dependencies{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Matcher: matching.NewEngine(),
		DB:      db,
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("healthy database", func(t *testing.T) {
		r := SetupRouter(testDeps(&fakeDB{}))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "healthy")
	})

	t.Run("unreachable database", func(t *testing.T) {
		r := SetupRouter(testDeps(&fakeDB{err: errors.New("connection refused")}))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "unhealthy")
	})
}
