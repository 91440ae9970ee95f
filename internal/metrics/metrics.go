// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the Prometheus scrape handler for reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// AppMetrics are the frame builder's business metrics.
type AppMetrics struct {
	FramesBuilt    *prometheus.CounterVec // labels: function, result
	Conversions    *prometheus.CounterVec // labels: format, result
	HistoryEntries prometheus.Gauge
	RateLimited    prometheus.Counter
}

// NewAppMetrics registers and returns the business metrics.
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		FramesBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtuframe_frames_built_total",
			Help: "Frame build attempts by function code.",
		}, []string{"function", "result"}),
		Conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtuframe_conversions_total",
			Help: "Numeric conversion attempts by target format.",
		}, []string{"format", "result"}),
		HistoryEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rtuframe_history_entries",
			Help: "Entries currently held by the history log.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rtuframe_http_rate_limited_total",
			Help: "HTTP requests rejected by the rate limiter.",
		}),
	}
	reg.MustRegister(m.FramesBuilt, m.Conversions, m.HistoryEntries, m.RateLimited)
	return m
}

// ObserveFrame counts one build attempt.
func (m *AppMetrics) ObserveFrame(function string, err error) {
	if m == nil {
		return
	}
	m.FramesBuilt.WithLabelValues(function, result(err)).Inc()
}

// ObserveConversion counts one conversion attempt.
func (m *AppMetrics) ObserveConversion(format string, err error) {
	if m == nil {
		return
	}
	m.Conversions.WithLabelValues(format, result(err)).Inc()
}

// SetHistorySize records the current history length.
func (m *AppMetrics) SetHistorySize(n int) {
	if m == nil {
		return
	}
	m.HistoryEntries.Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
