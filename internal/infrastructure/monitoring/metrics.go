package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	LoansIssuedTotal      prometheus.Counter
	PaymentsRecordedTotal *prometheus.CounterVec
	MembersCreatedTotal   prometheus.Counter
	LoansMarkedOverdue    prometheus.Counter
}

var (
	HTTP = HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microfin_office_http_requests_total",
				Help: "Total number of HTTP requests received.",
			},
			[]string{"method", "path", "code"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "microfin_office_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "code"},
		),
	}

	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "microfin_office_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		LoansIssuedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "microfin_office_loans_issued_total",
				Help: "Total number of loans successfully issued.",
			},
		),
		PaymentsRecordedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "microfin_office_payments_recorded_total",
				Help: "Total number of loan payment attempts by outcome.",
			},
			[]string{"status"},
		),
		MembersCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "microfin_office_members_created_total",
				Help: "Total number of members successfully created.",
			},
		),
		LoansMarkedOverdue: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "microfin_office_loans_marked_overdue_total",
				Help: "Total number of loans transitioned to OVERDUE by the batch scan.",
			},
		),
	}
)

func RecordHTTPRequest(method, path, code string, duration time.Duration) {
	HTTP.RequestsTotal.WithLabelValues(method, path, code).Inc()
	HTTP.RequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordPayment(status string) {
	Business.PaymentsRecordedTotal.WithLabelValues(status).Inc()
}

func RecordLoanIssued() {
	Business.LoansIssuedTotal.Inc()
}

func RecordMemberCreated() {
	Business.MembersCreatedTotal.Inc()
}

func RecordLoanMarkedOverdue() {
	Business.LoansMarkedOverdue.Inc()
}
