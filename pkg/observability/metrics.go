// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the stock management service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// HTTPBuckets defines histogram buckets for API request latencies,
// ranging from 5ms to 10s. Login requests sit near the top because of
// password hashing.
var HTTPBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// HashBuckets covers bcrypt cost factors from the minimum to well above
// the default.
var HashBuckets = []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stock_request_duration_seconds",
			Help:    "Request duration",
			Buckets: HTTPBuckets,
		},
		[]string{"method"},
	)

	// RequestsInFlight tracks the number of requests currently being served.
	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stock_requests_in_flight",
			Help: "Requests in flight",
		},
	)

	// IdentityResolutionsTotal counts per-request identity resolution
	// outcomes: authenticated, rejected, or anonymous.
	IdentityResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_identity_resolutions_total",
			Help: "Identity resolution outcomes",
		},
		[]string{"outcome"},
	)

	// AuthorizationDeniedTotal counts requests denied by an authorization
	// requirement, by reason (unauthenticated, forbidden).
	AuthorizationDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_authorization_denied_total",
			Help: "Authorization denials",
		},
		[]string{"reason"},
	)

	// LoginAttemptsTotal counts login attempts by outcome.
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_login_attempts_total",
			Help: "Login attempts",
		},
		[]string{"outcome"},
	)

	// TokensIssuedTotal counts issued tokens by lifetime (standard, remember_me).
	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_tokens_issued_total",
			Help: "Issued tokens",
		},
		[]string{"lifetime"},
	)

	// PasswordHashDuration records bcrypt hash and verify latency in seconds.
	PasswordHashDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stock_password_hash_duration_seconds",
			Help:    "Password hashing duration",
			Buckets: HashBuckets,
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		RequestsInFlight,
		IdentityResolutionsTotal,
		AuthorizationDeniedTotal,
		LoginAttemptsTotal,
		TokensIssuedTotal,
		PasswordHashDuration,
	)
}
