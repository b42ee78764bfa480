package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ngutech21/moviecatalog/cmd/moviecatalog/controllers"
	"github.com/ngutech21/moviecatalog/cmd/moviecatalog/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/united-manufacturing-hub/umh-utils/logger"
)

func newTestRouter(t *testing.T, cfg Config) *gin.Engine {
	_ = logger.New("DEVELOPMENT")
	gin.SetMode(gin.TestMode)
	return SetupRestAPI(cfg, controllers.NewMovieController(storage.NewMemoryStore(), nil))
}

func get(router http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestOnline(t *testing.T) {
	router := newTestRouter(t, Config{})

	w := get(router, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "online", w.Body.String())

	w = get(router, "/does/not/exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Route not found"}`, w.Body.String())
}

func TestRequestID(t *testing.T) {
	router := newTestRouter(t, Config{})

	w := get(router, "/api/v1/movies", nil)
	generated := w.Header().Get(requestIDHeader)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)

	sent := uuid.NewString()
	w = get(router, "/api/v1/movies", map[string]string{requestIDHeader: sent})
	assert.Equal(t, sent, w.Header().Get(requestIDHeader))

	w = get(router, "/api/v1/movies", map[string]string{requestIDHeader: "forged\nline"})
	assert.NotEqual(t, "forged\nline", w.Header().Get(requestIDHeader))
}

func TestCORS(t *testing.T) {
	router := newTestRouter(t, Config{})

	w := get(router, "/api/v1/movies", map[string]string{"Origin": "http://localhost:9000"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGzip(t *testing.T) {
	router := newTestRouter(t, Config{})

	w := get(router, "/api/v1/movies", map[string]string{"Accept-Encoding": "gzip"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestRateLimit(t *testing.T) {
	router := newTestRouter(t, Config{RateLimitRPS: 0.001, RateLimitBurst: 2})

	assert.Equal(t, http.StatusOK, get(router, "/api/v1/movies", nil).Code)
	assert.Equal(t, http.StatusOK, get(router, "/api/v1/movies", nil).Code)

	w := get(router, "/api/v1/movies", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
}

func TestSinglePageApplication(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>movies</html>"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o600))

	router := newTestRouter(t, Config{StaticDir: dir})

	w := get(router, "/assets/app.js", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	for _, path := range []string{"/", "/movie/12", "/index.htm"} {
		w = get(router, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "<html>movies</html>", w.Body.String(), path)
	}

	w = get(router, "/api/v1/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
