package telemetry

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom metrics for the service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	// Business metrics
	CareProfileTotal   metric.Int64Counter
	MedicationTotal    metric.Int64Counter
	CalendarEventTotal metric.Int64Counter
	HealthRecordTotal  metric.Int64Counter
	PropagationTotal   metric.Int64Counter
	StreamSubscribers  metric.Int64UpDownCounter

	// Auth metrics
	AuthFailuresTotal       metric.Int64Counter
	PermissionCheckDuration metric.Float64Histogram
}

// InitMetrics initializes all custom metrics on the global meter provider
func InitMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter("github.com/alaga-care/care-service"))
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.HTTPRequestsTotal, "http_server_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.CareProfileTotal, "care_profile_total", "Total number of care profile operations", "{operation}"},
		{&m.MedicationTotal, "medication_total", "Total number of medication operations", "{operation}"},
		{&m.CalendarEventTotal, "calendar_event_total", "Total number of calendar event operations", "{operation}"},
		{&m.HealthRecordTotal, "health_record_total", "Total number of health record operations", "{operation}"},
		{&m.PropagationTotal, "status_propagation_total", "Calendar event status changes propagated to medications", "{propagation}"},
		{&m.AuthFailuresTotal, "auth_failures_total", "Total number of authentication failures", "{failure}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
	}

	m.HTTPDurationMs, err = meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	m.PermissionCheckDuration, err = meter.Float64Histogram(
		"permission_check_duration_ms",
		metric.WithDescription("Permission check duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	m.StreamSubscribers, err = meter.Int64UpDownCounter(
		"medication_stream_subscribers",
		metric.WithDescription("Open medication subscription streams"),
		metric.WithUnit("{stream}"),
	)
	if err != nil {
		return nil, err
	}

	log.Info("✓ Custom metrics initialized")
	return &m, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	)

	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPDurationMs.Record(ctx, durationMs, attrs)
}

func operation(op string) metric.AddOption {
	return metric.WithAttributes(attribute.String("operation", op))
}

func (m *Metrics) RecordCareProfileOperation(ctx context.Context, op string) {
	m.CareProfileTotal.Add(ctx, 1, operation(op))
}

func (m *Metrics) RecordMedicationOperation(ctx context.Context, op string) {
	m.MedicationTotal.Add(ctx, 1, operation(op))
}

func (m *Metrics) RecordCalendarEventOperation(ctx context.Context, op string) {
	m.CalendarEventTotal.Add(ctx, 1, operation(op))
}

func (m *Metrics) RecordHealthRecordOperation(ctx context.Context, op string) {
	m.HealthRecordTotal.Add(ctx, 1, operation(op))
}

// RecordPropagation counts MarkEventStatus outcomes: "propagated",
// "dangling_link" or "not_linked".
func (m *Metrics) RecordPropagation(ctx context.Context, outcome string) {
	m.PropagationTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// StreamOpened and StreamClosed track live medication subscriptions.
func (m *Metrics) StreamOpened(ctx context.Context) {
	m.StreamSubscribers.Add(ctx, 1)
}

func (m *Metrics) StreamClosed(ctx context.Context) {
	m.StreamSubscribers.Add(ctx, -1)
}

// RecordAuthFailure records an authentication failure metric
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordPermissionCheck records a permission check duration metric
func (m *Metrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	m.PermissionCheckDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("permission", permission),
		attribute.Bool("allowed", allowed),
	))
}
