package server

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gliderlabs/ssh"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"mapview/internal/config"
	"mapview/internal/engine"
	"mapview/internal/faces"
	"mapview/internal/logger"
	"mapview/internal/maps"
)

// SessionInfo is the public view of a connected session.
type SessionInfo struct {
	ID         uuid.UUID `json:"id"`
	User       string    `json:"user"`
	Started    time.Time `json:"started"`
	ViewWidth  int       `json:"view_width"`
	ViewHeight int       `json:"view_height"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
}

// SSHServer serves the scene to SSH terminals, one engine per session.
type SSHServer struct {
	cfg     *config.Config
	faces   *faces.Registry
	scene   *maps.Scene
	metrics *engine.Metrics
	log     *logrus.Entry

	active prometheus.Gauge

	mu       sync.RWMutex
	sessions map[uuid.UUID]*SessionInfo
}

// NewSSHServer creates a server streaming scene to every session. The
// engine metrics are shared by all sessions; promReg may be nil.
func NewSSHServer(cfg *config.Config, reg *faces.Registry, scene *maps.Scene, metrics *engine.Metrics, promReg prometheus.Registerer) *SSHServer {
	s := &SSHServer{
		cfg:     cfg,
		faces:   reg,
		scene:   scene,
		metrics: metrics,
		log:     logger.Log.WithField("component", "ssh"),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mapview",
			Name:      "sessions_active",
			Help:      "Connected SSH sessions.",
		}),
		sessions: make(map[uuid.UUID]*SessionInfo),
	}
	if promReg != nil {
		promReg.MustRegister(s.active)
	}
	return s
}

// Start begins listening for SSH connections. Blocks.
func (s *SSHServer) Start() error {
	server := &ssh.Server{
		Addr: s.cfg.Server.Addr,
		Handler: func(sess ssh.Session) {
			s.handleSession(sess)
		},
	}

	if err := server.SetOption(ssh.HostKeyFile(s.cfg.Server.HostKey)); err != nil {
		return fmt.Errorf("set host key: %w", err)
	}

	s.log.WithField("addr", s.cfg.Server.Addr).Info("SSH server listening")
	return server.ListenAndServe()
}

// Sessions returns the connected sessions, oldest first.
func (s *SSHServer) Sessions() []SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SessionInfo, 0, len(s.sessions))
	for _, info := range s.sessions {
		out = append(out, *info)
	}
	slices.SortFunc(out, func(a, b SessionInfo) int { return a.Started.Compare(b.Started) })
	return out
}

// Session returns one connected session.
func (s *SSHServer) Session(id uuid.UUID) (SessionInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.sessions[id]
	if !ok {
		return SessionInfo{}, false
	}
	return *info, true
}

func (s *SSHServer) register(id uuid.UUID, user string) {
	s.mu.Lock()
	s.sessions[id] = &SessionInfo{ID: id, User: user, Started: time.Now()}
	s.mu.Unlock()
	s.active.Inc()
}

func (s *SSHServer) unregister(id uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.active.Dec()
}

// track updates the registry entry of a session, if still registered.
func (s *SSHServer) track(id uuid.UUID, fn func(*SessionInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.sessions[id]; ok {
		fn(info)
	}
}

func (s *SSHServer) handleSession(sess ssh.Session) {
	ptyReq, winCh, ok := sess.Pty()
	if !ok {
		fmt.Fprintln(sess, "Error: PTY required. Use: ssh -t ...")
		return
	}

	username := sess.User()
	if username == "" {
		username = "Anonymous"
	}

	id := uuid.New()
	s.register(id, username)
	defer s.unregister(id)

	ss, err := s.newSession(id, username, sess, ptyReq.Window.Width, ptyReq.Window.Height)
	if err != nil {
		s.log.WithError(err).WithField("user", username).Warn("session setup failed")
		fmt.Fprintln(sess, "Error:", err)
		return
	}
	ss.log.Info("viewer connected")
	defer ss.log.Info("viewer disconnected")

	if err := ss.term.Init(); err != nil {
		return
	}
	defer ss.term.Close()

	actionCh := make(chan action, 16)
	quitCh := make(chan struct{})

	// Goroutine: read input
	go func() {
		defer close(quitCh)
		buf := make([]byte, 64)
		for {
			n, err := sess.Read(buf)
			if err != nil {
				return
			}
			for _, a := range parseInput(buf[:n]) {
				select {
				case actionCh <- a:
				default:
				}
				if a == actionQuit {
					return
				}
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-quitCh:
			return
		case <-sess.Context().Done():
			return
		case a := <-actionCh:
			if !ss.handle(a) {
				return
			}
		case win, ok := <-winCh:
			if !ok {
				winCh = nil
				continue
			}
			if err := ss.resize(win.Width, win.Height); err != nil {
				ss.log.WithError(err).Warn("resize failed")
				return
			}
		case <-ticker.C:
			if err := ss.tick(); err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				ss.log.WithError(err).Debug("tick failed")
			}
		}
	}
}

// action is a key-level input command.
type action int

const (
	actionNone action = iota
	actionUp
	actionDown
	actionLeft
	actionRight
	actionRedraw
	actionLighting
	actionSmoothing
	actionQuit
)

func (a action) delta() (int, int) {
	switch a {
	case actionUp:
		return 0, -1
	case actionDown:
		return 0, 1
	case actionLeft:
		return -1, 0
	case actionRight:
		return 1, 0
	}
	return 0, 0
}

// parseInput converts raw bytes into actions.
// Handles WASD, arrow key escape sequences, l, t, r, q and Ctrl-C.
func parseInput(data []byte) []action {
	var actions []action
	i := 0
	for i < len(data) {
		// Check for escape sequences (arrow keys)
		if i+2 < len(data) && data[i] == 0x1b && data[i+1] == '[' {
			switch data[i+2] {
			case 'A':
				actions = append(actions, actionUp)
			case 'B':
				actions = append(actions, actionDown)
			case 'C':
				actions = append(actions, actionRight)
			case 'D':
				actions = append(actions, actionLeft)
			}
			i += 3
			continue
		}

		r, size := utf8.DecodeRune(data[i:])
		switch r {
		case 'w', 'W':
			actions = append(actions, actionUp)
		case 's', 'S':
			actions = append(actions, actionDown)
		case 'a', 'A':
			actions = append(actions, actionLeft)
		case 'd', 'D':
			actions = append(actions, actionRight)
		case 'r', 'R':
			actions = append(actions, actionRedraw)
		case 'l', 'L':
			actions = append(actions, actionLighting)
		case 't', 'T':
			actions = append(actions, actionSmoothing)
		case 'q', 'Q':
			actions = append(actions, actionQuit)
		case 3: // Ctrl-C
			actions = append(actions, actionQuit)
		}
		i += size
	}
	return actions
}
