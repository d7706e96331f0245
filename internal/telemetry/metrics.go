package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	meterName = "github.com/wolfeidau/townhall"
)

// Signup outcomes recorded on townhall.signup.total.
const (
	OutcomeSuccess      = "success"
	OutcomeValidation   = "validation"
	OutcomeIdentity     = "identity"
	OutcomeOrganization = "organization"
	OutcomeProfile      = "profile"
)

// Metrics holds the signup metric instruments.
type Metrics struct {
	SignupTotal        metric.Int64Counter
	CompensationsTotal metric.Int64Counter
	AuditFailuresTotal metric.Int64Counter
	SignupDuration     metric.Float64Histogram
}

// NewMetrics registers the signup instruments with the given meter provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)

	m := &Metrics{}
	var errs []error
	var err error

	m.SignupTotal, err = meter.Int64Counter(
		"townhall.signup.total",
		metric.WithDescription("Total number of signup attempts by outcome"),
		metric.WithUnit("{signup}"),
	)
	errs = append(errs, err)

	m.CompensationsTotal, err = meter.Int64Counter(
		"townhall.signup.compensations.total",
		metric.WithDescription("Total number of compensating deletes by target and result"),
		metric.WithUnit("{operation}"),
	)
	errs = append(errs, err)

	m.AuditFailuresTotal, err = meter.Int64Counter(
		"townhall.signup.audit.failures.total",
		metric.WithDescription("Total number of audit log writes that failed after a successful signup"),
		metric.WithUnit("{error}"),
	)
	errs = append(errs, err)

	m.SignupDuration, err = meter.Float64Histogram(
		"townhall.signup.duration",
		metric.WithDescription("Duration of the account provisioning sequence"),
		metric.WithUnit("ms"),
	)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return m, nil
}

// NoopMetrics returns instruments that record nothing.
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

// RecordSignup records the outcome and duration of one provisioning attempt.
func (m *Metrics) RecordSignup(ctx context.Context, outcome string, durationMs float64) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.SignupTotal.Add(ctx, 1, attrs)
	m.SignupDuration.Record(ctx, durationMs, attrs)
}

// RecordCompensation records a compensating delete against target ("identity"
// or "organization").
func (m *Metrics) RecordCompensation(ctx context.Context, target string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CompensationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target", target),
		attribute.String("result", result),
	))
}

// RecordAuditFailure counts an audit log write that was dropped.
func (m *Metrics) RecordAuditFailure(ctx context.Context) {
	m.AuditFailuresTotal.Add(ctx, 1)
}
