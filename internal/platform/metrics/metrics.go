// Package metrics provides Prometheus metrics for the report engine and the
// HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics. A nil *Metrics is valid and records
// nothing, so services can be built without one in tests.
type Metrics struct {
	ReportsCreated    *prometheus.CounterVec
	ReportsDeleted    prometheus.Counter
	OverlapRejections prometheus.Counter
	BillingFailures   prometheus.Counter
	BillablesCreated  prometheus.Counter
	InvoicesCreated   prometheus.Counter
	ClaimTransitions  *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReportsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "claimdesk_reports_created_total",
			Help: "Total reports created, by report type",
		}, []string{"report_type"}),
		ReportsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "claimdesk_reports_deleted_total",
			Help: "Total reports soft-deleted",
		}),
		OverlapRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "claimdesk_dos_overlap_rejections_total",
			Help: "Report saves blocked because the DOS range overlapped another report",
		}),
		BillingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "claimdesk_billing_automation_failures_total",
			Help: "Report creations whose automatic billable item could not be written",
		}),
		BillablesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "claimdesk_billable_items_created_total",
			Help: "Total billable items created",
		}),
		InvoicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "claimdesk_invoices_created_total",
			Help: "Total invoices created",
		}),
		ClaimTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "claimdesk_claim_transitions_total",
			Help: "Claim status transitions, by target status",
		}, []string{"to"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "claimdesk_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		m.ReportsCreated,
		m.ReportsDeleted,
		m.OverlapRejections,
		m.BillingFailures,
		m.BillablesCreated,
		m.InvoicesCreated,
		m.ClaimTransitions,
		m.RequestDuration,
	)

	return m
}

func (m *Metrics) ReportCreated(reportType string) {
	if m != nil {
		m.ReportsCreated.WithLabelValues(reportType).Inc()
	}
}

func (m *Metrics) ReportDeleted() {
	if m != nil {
		m.ReportsDeleted.Inc()
	}
}

func (m *Metrics) OverlapRejected() {
	if m != nil {
		m.OverlapRejections.Inc()
	}
}

func (m *Metrics) BillingFailed() {
	if m != nil {
		m.BillingFailures.Inc()
	}
}

func (m *Metrics) BillableCreated() {
	if m != nil {
		m.BillablesCreated.Inc()
	}
}

func (m *Metrics) InvoiceCreated() {
	if m != nil {
		m.InvoicesCreated.Inc()
	}
}

func (m *Metrics) ClaimTransitioned(to string) {
	if m != nil {
		m.ClaimTransitions.WithLabelValues(to).Inc()
	}
}

// Middleware observes request duration labelled by the matched route, not
// the raw path, to keep cardinality bounded.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.RequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler returns the Prometheus HTTP handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
