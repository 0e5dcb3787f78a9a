package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors shared by every Engine in the
// process. Engines are per session, so one Metrics is created up front and
// handed to each of them.
type Metrics struct {
	ticks      prometheus.Counter
	applied    prometheus.Counter
	dropped    prometheus.Counter
	rejected   prometheus.Counter
	recenters  prometheus.Counter
	drawn      prometheus.Counter
	unresolved prometheus.Counter
	drawErrors prometheus.Counter
	dirty      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mapview",
			Name:      "ticks_total",
			Help:      "Engine ticks executed.",
		}),
		applied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mapview",
			Name:      "updates_applied_total",
			Help:      "Queued updates applied to a buffer.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mapview",
			Name:      "updates_dropped_total",
			Help:      "Updates dropped because the queue was full.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mapview",
			Name:      "updates_rejected_total",
			Help:      "Updates that failed to apply, usually out of bounds.",
		}),
		recenters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mapview",
			Name:      "recenters_total",
			Help:      "Buffer recenters triggered by scrolling.",
		}),
		drawn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mapview",
			Name:      "cells_drawn_total",
			Help:      "Dirty cells handed to a renderer.",
		}),
		unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mapview",
			Name:      "unresolved_faces_total",
			Help:      "Smoothing contributions skipped because the blend face had no image.",
		}),
		drawErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mapview",
			Name:      "draw_errors_total",
			Help:      "Renderer passes that returned an error.",
		}),
		dirty: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mapview",
			Name:      "dirty_cells",
			Help:      "Dirty cells in the most recent frame.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ticks, m.applied, m.dropped, m.rejected,
			m.recenters, m.drawn, m.unresolved, m.drawErrors, m.dirty)
	}
	return m
}
