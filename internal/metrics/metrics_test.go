package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCounters(t *testing.T) {
	ObserveRequest(http.MethodGet, "/gsmb-officer/complaints", http.StatusOK, 12*time.Millisecond)
	RecordRedmineCall("list issues", nil)
	RecordOTPIssued()
	RecordOTPVerification("verified")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "gsmb_http_requests_total")
	assert.Contains(t, body, "gsmb_redmine_requests_total")
	assert.Contains(t, body, "gsmb_otp_issued_total")
	assert.Contains(t, body, `gsmb_otp_verifications_total{outcome="verified"}`)
}

func TestInFlightGaugeBalances(t *testing.T) {
	IncInFlight()
	DecInFlight()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gsmb_http_inflight_requests 0")
}
