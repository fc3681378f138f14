package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOrderRequestDecided(t *testing.T) {
	before := testutil.ToFloat64(orderRequestDecisions.WithLabelValues("accepted"))
	OrderRequestDecided("accepted")
	assert.Equal(t, before+1, testutil.ToFloat64(orderRequestDecisions.WithLabelValues("accepted")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	OrderRequestCreated()
	LoginAttempt(false)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(body, "gemstore_order_requests_created_total"))
	assert.True(t, strings.Contains(body, `gemstore_auth_logins_total{result="failure"}`))
}
