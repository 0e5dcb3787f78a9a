package engine

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Run ticks the engine until Stop is called. Blocks.
func (e *Engine) Run() {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			if err := e.Tick(); err != nil {
				e.log.WithError(err).Warn("tick failed")
			}
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

// Tick applies queued updates and draws the resulting dirty cells.
func (e *Engine) Tick() error {
	e.drain()
	e.tickCount++
	e.metrics.ticks.Inc()
	return e.Draw()
}

// Draw hands the current dirty set to the renderer. On success the dirty
// flags are cleared; on failure the next frame is a full redraw.
func (e *Engine) Draw() error {
	if e.renderer == nil {
		return nil
	}
	if e.fullRedraw {
		e.buf.MarkViewportDirty()
	}
	n := e.promoteResmooth()
	e.metrics.dirty.Set(float64(n))
	if n == 0 && e.scrollX == 0 && e.scrollY == 0 {
		return nil
	}

	dx, dy := e.TakeScroll()
	f := Frame{
		Tick:    e.tickCount,
		View:    e.buf.Viewport(),
		Mode:    e.mode,
		ScrollX: dx,
		ScrollY: dy,
		Full:    e.fullRedraw,
		Cells:   e.DirtyCells(),
	}

	e.drawing++
	err := e.renderer.Draw(f)
	e.drawing--
	if err != nil {
		e.metrics.drawErrors.Inc()
		e.fullRedraw = true
		return fmt.Errorf("draw frame %d: %w", f.Tick, err)
	}

	e.metrics.drawn.Add(float64(n))
	e.fullRedraw = false
	e.ClearDirty()
	e.log.WithFields(logrus.Fields{
		"tick":  f.Tick,
		"cells": n,
		"full":  f.Full,
	}).Trace("frame drawn")
	return nil
}
