// AngelaMos | 2026
// metrics.go

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bloodlink"

// Metrics holds every collector the service exports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SearchesTotal      prometheus.Counter
	SearchResults      prometheus.Histogram
	RegistrationsTotal *prometheus.CounterVec
	LoginsTotal        *prometheus.CounterVec
	DonationsCreated   prometheus.Counter
	DonationsVerified  prometheus.Counter
}

// New registers collectors on reg. Tests pass a fresh registry each time
// so repeated construction never collides.
func New(reg *prometheus.Registry) *Metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"method", "route"},
		),
		SearchesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "donor_searches_total",
			Help:      "Donor searches run by hospitals",
		}),
		SearchResults: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "donor_search_results",
			Help:      "Number of donors returned per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		RegistrationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registrations_total",
				Help:      "Accounts registered by role",
			},
			[]string{"role"},
		),
		LoginsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		DonationsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "donations_created_total",
			Help:      "Donations recorded as pending",
		}),
		DonationsVerified: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "donations_verified_total",
			Help:      "Pending donations moved to verified",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveSearch(results int) {
	if m == nil {
		return
	}
	m.SearchesTotal.Inc()
	m.SearchResults.Observe(float64(results))
}

func (m *Metrics) IncRegistration(role string) {
	if m == nil {
		return
	}
	m.RegistrationsTotal.WithLabelValues(role).Inc()
}

func (m *Metrics) IncLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncDonationCreated() {
	if m == nil {
		return
	}
	m.DonationsCreated.Inc()
}

func (m *Metrics) IncDonationVerified() {
	if m == nil {
		return
	}
	m.DonationsVerified.Inc()
}

// Middleware labels requests by chi route pattern rather than raw path
// to keep label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.HTTPRequestsTotal.WithLabelValues(
			r.Method, route, strconv.Itoa(status),
		).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).
			Observe(time.Since(start).Seconds())
	})
}
