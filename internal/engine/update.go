package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"mapview/internal/light"
	"mapview/internal/mapbuf"
)

// Kind identifies a queued update.
type Kind uint8

const (
	KindLayerFace Kind = iota + 1
	KindSmoothLevel
	KindDarkness
	KindFogCleared
	KindFogVisible
	KindScroll
	KindReset
	KindLighting
	KindRedraw
)

var kindNames = map[Kind]string{
	KindLayerFace:   "layer_face",
	KindSmoothLevel: "smooth_level",
	KindDarkness:    "darkness",
	KindFogCleared:  "fog_cleared",
	KindFogVisible:  "fog_visible",
	KindScroll:      "scroll",
	KindReset:       "reset",
	KindLighting:    "lighting",
	KindRedraw:      "redraw",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Update is one queued mutation. X and Y are viewport-relative; for
// KindScroll they are the delta.
type Update struct {
	Kind       Kind
	X, Y       int
	Layer      int
	Head       mapbuf.FaceID
	HeadOffset mapbuf.Offset
	Tail       mapbuf.FaceID
	TailOffset mapbuf.Offset
	Level      uint8
	Darkness   uint8
	Mode       light.Mode
}

func LayerFace(x, y, layer int, head mapbuf.FaceID, headOff mapbuf.Offset, tail mapbuf.FaceID, tailOff mapbuf.Offset) Update {
	return Update{Kind: KindLayerFace, X: x, Y: y, Layer: layer,
		Head: head, HeadOffset: headOff, Tail: tail, TailOffset: tailOff}
}

func SmoothLevel(x, y, layer int, level uint8) Update {
	return Update{Kind: KindSmoothLevel, X: x, Y: y, Layer: layer, Level: level}
}

func Darkness(x, y int, d uint8) Update {
	return Update{Kind: KindDarkness, X: x, Y: y, Darkness: d}
}

func FogCleared(x, y int) Update { return Update{Kind: KindFogCleared, X: x, Y: y} }

func FogVisible(x, y int) Update { return Update{Kind: KindFogVisible, X: x, Y: y} }

func ScrollBy(dx, dy int) Update { return Update{Kind: KindScroll, X: dx, Y: dy} }

func ResetMap() Update { return Update{Kind: KindReset} }

func Lighting(m light.Mode) Update { return Update{Kind: KindLighting, Mode: m} }

func Redraw() Update { return Update{Kind: KindRedraw} }

// Enqueue queues u for the next tick. It never blocks: when the queue is
// full the update is dropped and false is returned. Safe for concurrent use.
func (e *Engine) Enqueue(u Update) bool {
	return e.EnqueueAll([]Update{u})
}

// EnqueueAll queues a batch as one queue entry; its updates are applied in
// order within a single tick. The whole batch is dropped when the queue is
// full.
func (e *Engine) EnqueueAll(batch []Update) bool {
	if len(batch) == 0 {
		return true
	}
	select {
	case e.queue <- batch:
		return true
	default:
		e.metrics.dropped.Add(float64(len(batch)))
		e.log.WithFields(logrus.Fields{
			"kind":  batch[0].Kind,
			"count": len(batch),
		}).Warn("update queue full, dropping batch")
		return false
	}
}

// Apply performs u immediately. It must run on the tick goroutine.
func (e *Engine) Apply(u Update) error {
	switch u.Kind {
	case KindLayerFace:
		return e.SetLayerFace(u.X, u.Y, u.Layer, u.Head, u.HeadOffset, u.Tail, u.TailOffset)
	case KindSmoothLevel:
		return e.SetSmoothLevel(u.X, u.Y, u.Layer, u.Level)
	case KindDarkness:
		return e.SetDarkness(u.X, u.Y, u.Darkness)
	case KindFogCleared:
		return e.MarkFogCleared(u.X, u.Y)
	case KindFogVisible:
		return e.MarkFogVisible(u.X, u.Y)
	case KindScroll:
		e.Scroll(u.X, u.Y)
	case KindReset:
		e.Reset()
	case KindLighting:
		e.SetLightingMode(u.Mode)
	case KindRedraw:
		e.RequestRedraw()
	default:
		return fmt.Errorf("unknown update kind %d", u.Kind)
	}
	return nil
}

// drain applies every queued update without blocking.
func (e *Engine) drain() int {
	n := 0
	for {
		select {
		case batch := <-e.queue:
			for _, u := range batch {
				n++
				if err := e.Apply(u); err != nil {
					e.metrics.rejected.Inc()
					e.log.WithFields(logrus.Fields{
						"kind": u.Kind,
						"x":    u.X,
						"y":    u.Y,
					}).WithError(err).Warn("update rejected")
					continue
				}
				e.metrics.applied.Inc()
			}
		default:
			return n
		}
	}
}
