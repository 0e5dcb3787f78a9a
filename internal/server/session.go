package server

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mapview/internal/engine"
	"mapview/internal/render"
	"mapview/internal/world"
)

// flickerEvery is the number of ticks between light flicker updates.
const flickerEvery = 3

// session is one connected viewer: a terminal renderer, an engine sized to
// it and a feed streaming the scene. All methods run on the session
// goroutine.
type session struct {
	srv  *SSHServer
	id   uuid.UUID
	user string
	out  io.Writer
	log  *logrus.Entry

	term  *render.Terminal
	eng   *engine.Engine
	feed  *world.Feed
	ticks int
}

func (s *SSHServer) newSession(id uuid.UUID, user string, out io.Writer, width, height int) (*session, error) {
	ss := &session{
		srv:  s,
		id:   id,
		user: user,
		out:  out,
		log:  s.log.WithFields(logrus.Fields{"session": id.String(), "user": user}),
	}
	if err := ss.build(width, height); err != nil {
		return nil, err
	}
	return ss, nil
}

// build (re)creates the terminal, engine and feed for a terminal size and
// queues a full join. The viewer keeps its position across rebuilds.
func (ss *session) build(width, height int) error {
	cfg := ss.srv.cfg
	term := render.NewTerminal(ss.out, render.NewComposer(ss.srv.faces), width, height, render.DefaultTilePixels)
	viewW, viewH := term.ViewSize()

	mc := cfg.Map
	mc.ViewWidth, mc.ViewHeight = viewW, viewH
	bufW, bufH := mc.BufferSize()

	smoothing, mode := cfg.SmoothingEnabled(), cfg.LightingMode()
	if ss.eng != nil {
		smoothing, mode = ss.eng.Smoothing(), ss.eng.LightingMode()
	}
	eng, err := engine.New(engine.Options{
		Width:        bufW,
		Height:       bufH,
		ViewWidth:    viewW,
		ViewHeight:   viewH,
		Faces:        ss.srv.faces,
		Lighting:     mode,
		Smoothing:    smoothing,
		TileSize:     ss.srv.faces.TileSize(),
		QueueSize:    cfg.Engine.QueueSize,
		TickInterval: cfg.TickInterval(),
		Metrics:      ss.srv.metrics,
		Log:          ss.log.WithField("component", "engine"),
	}, term)
	if err != nil {
		return fmt.Errorf("session engine %dx%d: %w", bufW, bufH, err)
	}

	feed := world.NewFeed(ss.srv.scene, ss.srv.faces, world.Options{
		ViewWidth:  viewW,
		ViewHeight: viewH,
		Sight:      cfg.Map.Sight,
		Flicker:    uint8(cfg.Map.Flicker),
		Seed:       int64(ss.id.ID()),
	})
	if ss.feed != nil {
		feed.X, feed.Y = ss.feed.X, ss.feed.Y
	}

	ss.term, ss.eng, ss.feed = term, eng, feed
	if !eng.EnqueueAll(feed.Join()) {
		return fmt.Errorf("session %s: join batch dropped", ss.id)
	}
	ss.srv.track(ss.id, func(info *SessionInfo) {
		info.ViewWidth, info.ViewHeight = viewW, viewH
		info.X, info.Y = feed.X, feed.Y
	})
	ss.log.WithFields(logrus.Fields{
		"view":   fmt.Sprintf("%dx%d", viewW, viewH),
		"buffer": fmt.Sprintf("%dx%d", bufW, bufH),
	}).Debug("session built")
	return nil
}

// handle applies one input action. It returns false when the session
// should end.
func (ss *session) handle(a action) bool {
	switch a {
	case actionQuit:
		return false
	case actionUp, actionDown, actionLeft, actionRight:
		dx, dy := a.delta()
		ups, ok := ss.feed.Move(dx, dy)
		if !ok {
			return true
		}
		ss.send(ups)
		ss.srv.track(ss.id, func(info *SessionInfo) {
			info.X, info.Y = ss.feed.X, ss.feed.Y
		})
	case actionRedraw:
		ss.eng.Enqueue(engine.Redraw())
	case actionLighting:
		ss.eng.Enqueue(engine.Lighting(ss.eng.LightingMode().Next()))
	case actionSmoothing:
		ss.eng.SetSmoothing(!ss.eng.Smoothing())
	}
	return true
}

// send queues a feed batch. A dropped batch leaves the engine behind the
// feed, so the feed is invalidated and rejoined on a later tick.
func (ss *session) send(ups []engine.Update) {
	if ss.eng.EnqueueAll(ups) {
		return
	}
	ss.feed.Invalidate()
}

// resize rebuilds the session for a new terminal size.
func (ss *session) resize(width, height int) error {
	if err := ss.build(width, height); err != nil {
		return err
	}
	_, err := io.WriteString(ss.out, render.ClearScreen())
	return err
}

// tick advances the engine one step and writes the resulting frame.
func (ss *session) tick() error {
	ss.ticks++
	if !ss.feed.Joined() {
		ss.send(ss.feed.Join())
	}
	if ss.ticks%flickerEvery == 0 && ss.feed.Joined() {
		ss.eng.EnqueueAll(ss.feed.Flicker())
	}
	smooth := "off"
	if ss.eng.Smoothing() {
		smooth = "on"
	}
	ss.term.SetStatus(fmt.Sprintf(" %s  (%d,%d)  light:%s smooth:%s  [wasd] move [l]ight [t]smooth [r]edraw [q]uit",
		ss.srv.scene.Name, ss.feed.X, ss.feed.Y, ss.eng.LightingMode(), smooth))
	return ss.eng.Tick()
}
