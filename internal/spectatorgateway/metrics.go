package spectatorgateway

import "expvar"

var (
	metricSpectatorsTotal  = expvar.NewInt("spectator_sse_connections_total")
	metricSpectatorsActive = expvar.NewInt("spectator_sse_connections_active")
)
