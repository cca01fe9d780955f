package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frontdesk_reservations_created_total",
		Help: "Total number of reservations created",
	}, []string{"source"})

	ReservationTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frontdesk_reservation_transitions_total",
		Help: "Total number of committed reservation status transitions",
	}, []string{"from", "to"})

	ReservationsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontdesk_reservations_deleted_total",
		Help: "Total number of deleted reservations",
	})

	RoomAssignmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontdesk_room_assignments_total",
		Help: "Total number of rooms assigned to reservations",
	})

	InvoicesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontdesk_invoices_created_total",
		Help: "Total number of invoices created",
	})

	InvoiceNumberFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontdesk_invoice_number_fallback_total",
		Help: "Invoice numbers generated from a random suffix after the sequence lookup failed",
	})

	PaymentsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frontdesk_payments_recorded_total",
		Help: "Total number of payments recorded",
	}, []string{"method"})

	PaymentAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontdesk_payment_amount_total",
		Help: "Sum of recorded payment amounts",
	})

	AuditWriteFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frontdesk_audit_write_failures_total",
		Help: "Audit log writes that failed without affecting the business operation",
	}, []string{"trail", "action"})

	OperationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frontdesk_operation_failures_total",
		Help: "Failed business operations by error kind",
	}, []string{"operation", "kind"})

	OperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "frontdesk_operation_latency_seconds",
		Help:    "Latency of business operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	EventPublishFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frontdesk_event_publish_failures_total",
		Help: "Domain events that could not be published",
	}, []string{"event_type"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
