package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGinPrometheusMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinPrometheusMiddleware("metrics-test"))
	router.GET("/reviews/:review_id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for _, id := range []string{"1", "2", "3"} {
		req, _ := http.NewRequest(http.MethodGet, "/reviews/"+id, nil)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	counter := HttpRequestsTotal.WithLabelValues("metrics-test", http.MethodGet, "/reviews/:review_id", "200")
	assert.Equal(t, 3.0, testutil.ToFloat64(counter))
}

func TestGinPrometheusMiddleware_UnmatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinPrometheusMiddleware("metrics-test-unmatched"))

	req, _ := http.NewRequest(http.MethodGet, "/nowhere/42", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	counter := HttpRequestsTotal.WithLabelValues("metrics-test-unmatched", http.MethodGet, unmatchedRoute, "404")
	assert.Equal(t, 1.0, testutil.ToFloat64(counter))
}

func TestGinPrometheusMiddleware_SkipsHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinPrometheusMiddleware("metrics-test-health"))
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	counter := HttpRequestsTotal.WithLabelValues("metrics-test-health", http.MethodGet, "/health", "200")
	assert.Equal(t, 0.0, testutil.ToFloat64(counter))
}

func TestDbTimer_DoneRecordsErrors(t *testing.T) {
	NewDbTimer("metrics-test-db", DbOpInsert, "reviews").Done(nil)
	NewDbTimer("metrics-test-db", DbOpInsert, "reviews").Done(errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(DbErrors.WithLabelValues("metrics-test-db", string(DbOpInsert))))
}

func TestSetStoreUp(t *testing.T) {
	SetStoreUp("metrics-test-store", "memory", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(StoreUp.WithLabelValues("metrics-test-store", "memory")))

	SetStoreUp("metrics-test-store", "memory", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(StoreUp.WithLabelValues("metrics-test-store", "memory")))
}
