// Package otel bridges the engine's counters to an OpenTelemetry meter
// through observable instruments.
package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/accountforge/authcore"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	Metrics() *authcore.Metrics
	EventsDropped() uint64
}

type observedCounter struct {
	id         authcore.MetricID
	instrument metric.Int64ObservableCounter
}

// Exporter registers one observable counter per engine metric and feeds
// them from snapshots on each collection cycle.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	dropped      metric.Int64ObservableCounter
}

// NewExporter creates an exporter reading from the given engine.
func NewExporter(meter metric.Meter, engine *authcore.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource creates an exporter from any metrics source.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	ids := authcore.MetricIDs()
	exporter := &Exporter{
		source:   source,
		counters: make([]observedCounter, 0, len(ids)),
	}
	observables := make([]metric.Observable, 0, len(ids)+1)

	for _, id := range ids {
		name := "authcore_" + id.Name()
		ins, err := meter.Int64ObservableCounter(name, metric.WithDescription("Engine counter "+id.Name()+"."))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: id, instrument: ins})
		observables = append(observables, ins)
	}

	dropped, err := meter.Int64ObservableCounter(
		"authcore_events_dropped_total",
		metric.WithDescription("Events discarded by the dispatcher under backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create dropped counter: %w", err)
	}
	exporter.dropped = dropped
	observables = append(observables, dropped)

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snap := exporter.source.Metrics().Snapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snap.Counters[c.id]))
		}
		observer.ObserveInt64(exporter.dropped, int64(exporter.source.EventsDropped()))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
