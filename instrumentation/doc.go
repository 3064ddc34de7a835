// Package instrumentation provides OpenTelemetry (OTEL) instrumentation for the bridge.
//
// It offers:
//   - Metrics: counters and histograms for HTTP requests, code exchanges, revocations
//     and calls to Apple
//   - Traces: spans for the HTTP layer, the bridge flows and every provider attempt
//
// # Quick Start
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		Enabled:        true,
//		ServiceVersion: "1.0.0",
//		OTLPEndpoint:   "http://otel-collector:4318/v1/traces",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
//	srv.SetInstrumentation(inst)
//
// # Prometheus Metrics
//
// With MetricsExporter set to "prometheus", MetricsHandler serves the metrics
// in the Prometheus exposition format. The bridge router mounts it on /metrics.
// The exporter needs Enabled; New rejects it otherwise.
//
// # Available Metrics
//
// HTTP Layer:
//   - bridge.http.requests.total{method, endpoint, status}
//   - bridge.http.request.duration{endpoint} (ms)
//
// Bridge flows:
//   - bridge.callback.processed{client_id, tokens_attached}
//   - bridge.code.exchanged{client_id, success}
//   - bridge.token.revoked{client_id, token_type_hint, success}
//
// Provider:
//   - bridge.client_secret.minted{client_id}
//   - bridge.provider.api.calls.total{provider, operation, client_id, status}
//   - bridge.provider.api.duration{provider, operation} (ms)
//   - bridge.provider.api.errors{provider, operation, error_type}
//
// Security:
//   - bridge.assertion.decode_failed{source}
//   - bridge.audit.events.total{event_type}
//
// client_id only ever takes the two configured client identities (or "" when
// none succeeded), so label cardinality stays small.
//
// # Security Considerations
//
// Never record authorization codes, tokens or client assertions in spans or
// metrics. Client IP addresses are only added to spans when LogClientIPs is set.
package instrumentation
