package commands

import (
	"net/http"

	"github.com/edgecompose/tmplengine/internal/telemetry"
)

// serveMetrics blocks serving m's prometheus handler at addr. Used only
// when --metrics-addr is set; expand() does not require it.
func serveMetrics(addr string, m *telemetry.Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
