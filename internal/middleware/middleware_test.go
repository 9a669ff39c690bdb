package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	method string
	path   string
	status int
}

type recordingObserver struct {
	items []observation
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	r.items = append(r.items, observation{method: method, path: path, status: status})
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/sessions/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/sessions/abc", "/missing"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, observer.items, 2)
	assert.Equal(t, observation{method: "GET", path: "/sessions/:id", status: 200}, observer.items[0])
	assert.Equal(t, observation{method: "GET", path: "unmatched", status: 404}, observer.items[1])
}

func TestResponseMetaCollectsWarnings(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var captured map[string]interface{}
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/", func(c *gin.Context) {
		assert.Nil(t, ExtractMeta(c))
		AddWarnings(c, "busy snapshot unavailable")
		AddWarnings(c)
		AddWarnings(c, "blocked days unavailable")
		SetCacheHit(c, false)
		captured = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, captured)
	assert.Equal(t, []string{"busy snapshot unavailable", "blocked days unavailable"}, captured["warnings"])
	assert.Equal(t, false, captured["busy_cache_hit"])
	assert.Contains(t, captured, "processing_time_ms")
}
