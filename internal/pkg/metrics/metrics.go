// Package metrics 定义 API 服务的 Prometheus 指标。
//
// 指标在包初始化时创建，InitMetrics 负责注册到默认 Registry，可重复调用。
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "teenwell"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	HTTPInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "Requests currently being served.",
	})

	// EmailsTotal kind: welcome / otp；result: sent / failed / skipped / dropped。
	EmailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_total",
		Help:      "Outbound emails by kind and result.",
	}, []string{"kind", "result"})

	MailQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mail_queue_depth",
		Help:      "Pending jobs in the mail queue.",
	})

	MailWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mail_workers",
		Help:      "Configured mail worker count.",
	})

	MoodEntriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mood_entries_total",
		Help:      "Mood entries created by mood.",
	}, []string{"mood"})

	AppointmentsBookedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "appointments_booked_total",
		Help:      "Appointments created.",
	})

	AppointmentConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "appointment_conflicts_total",
		Help:      "Bookings rejected because the slot was taken.",
	})

	// RateLimitedTotal scope: api / auth。
	RateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	}, []string{"scope"})

	RateLimitBackendErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_backend_errors_total",
		Help:      "Redis limiter failures that fell back to the local limiter.",
	})

	ChatConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "chat_ws_connections",
		Help:      "Open chat websocket connections.",
	})

	OTPPurgedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_purged_total",
		Help:      "Expired one-time passcodes removed by the janitor.",
	})
)

var registerOnce sync.Once

// InitMetrics 注册全部指标，并记录邮件 worker 数量。
func InitMetrics(mailWorkers int) {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			HTTPInFlight,
			EmailsTotal,
			MailQueueDepth,
			MailWorkers,
			MoodEntriesTotal,
			AppointmentsBookedTotal,
			AppointmentConflictsTotal,
			RateLimitedTotal,
			RateLimitBackendErrorsTotal,
			ChatConnections,
			OTPPurgedTotal,
		)
	})
	MailWorkers.Set(float64(mailWorkers))
}
