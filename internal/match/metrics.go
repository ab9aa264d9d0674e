package match

import "expvar"

var (
	metricMatchesActive      = expvar.NewInt("matches_active")
	metricEscrowFailures     = expvar.NewInt("escrow_failures_total")
	metricSettlements        = expvar.NewInt("settlements_total")
	metricSettlementFailures = expvar.NewInt("settlement_failures_total")
	metricForfeits           = expvar.NewInt("forfeits_total")
)
