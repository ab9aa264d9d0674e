package httptransport

import "expvar"

var (
	metricEventRequests = expvar.NewInt("http_event_requests_total")
	metricEventErrors   = expvar.NewInt("http_event_errors_total")

	metricGrants      = expvar.NewInt("admin_grants_total")
	metricGrantErrors = expvar.NewInt("admin_grant_errors_total")
)
