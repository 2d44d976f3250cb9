// Package metrics contains all application-logic metrics
package metrics

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

var (
	quotesReceived           = metrics.NewCounter("quote_requests_received_total")
	quotesServed             = metrics.NewCounter("quote_requests_served_total")
	honeypotOracleFailures   = metrics.NewCounter("honeypot_oracle_failures_total")
	preflightEndpointFailure = metrics.NewCounter("preflight_endpoint_failures_total")
	archiveDropped           = metrics.NewCounter("archive_receipts_dropped_total")
	archiveFailure           = metrics.NewCounter("archive_receipts_failed_total")
)

func IncQuotesReceived() {
	quotesReceived.Inc()
}

func IncQuotesServed() {
	quotesServed.Inc()
}

func IncLiquidityOracleFailure(kind string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`liquidity_oracle_failures_total{kind="%s"}`, kind)).Inc()
}

func IncHoneypotOracleFailure() {
	honeypotOracleFailures.Inc()
}

func IncPreflightEndpointFailure() {
	preflightEndpointFailure.Inc()
}

func IncArchiveDropped() {
	archiveDropped.Inc()
}

func IncArchiveFailure() {
	archiveFailure.Inc()
}

func IncProviderQuoteFailure(provider string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`provider_quote_failures_total{provider="%s"}`, provider)).Inc()
}

func RecordProviderQuoteDuration(provider string, duration int64) {
	metrics.GetOrCreateSummary(fmt.Sprintf(`provider_quote_duration_milliseconds{provider="%s"}`, provider)).Update(float64(duration))
}

func RecordRPCCallDuration(method string, duration int64) {
	metrics.GetOrCreateSummary(fmt.Sprintf(`rpc_call_duration_milliseconds{method="%s"}`, method)).Update(float64(duration))
}

func IncRPCCallFailure(method string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`rpc_call_failures_total{method="%s"}`, method)).Inc()
}
