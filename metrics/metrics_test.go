package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(Handler()))

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/items/:id", "204"))
	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/items/:id", "204"))
	assert.Equal(t, before+2, after)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bookingdesk_http_requests_total")
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(notifications.WithLabelValues("sms", "failed"))
	RecordNotification("sms", "failed")
	assert.Equal(t, before+1, testutil.ToFloat64(notifications.WithLabelValues("sms", "failed")))

	before = testutil.ToFloat64(webhookEvents.WithLabelValues("invoice.paid", "ignored"))
	RecordWebhookEvent("invoice.paid", "ignored")
	assert.Equal(t, before+1, testutil.ToFloat64(webhookEvents.WithLabelValues("invoice.paid", "ignored")))
}
