package services

import (
	"sync"
	"time"

	"novascp/types"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// DefaultConnectDelay is how long a selected server stays "connecting"
const DefaultConnectDelay = time.Second

// Session tracks the selected server and its placeholder connection status.
// There is no handshake: selecting a server always ends up connected once
// the delay has passed.
type Session struct {
	registry ServerRegistry
	delay    time.Duration

	mu       sync.Mutex
	serverID string
	timer    *time.Timer

	// bumped on every selection so a stale timer cannot mark a newer
	// selection as connected
	generation *atomic.Uint64
	status     *atomic.String
}

// NewSession creates a session and selects the first saved server, if any
func NewSession(registry ServerRegistry, delay time.Duration) *Session {
	if delay <= 0 {
		delay = DefaultConnectDelay
	}
	s := &Session{
		registry:   registry,
		delay:      delay,
		generation: atomic.NewUint64(0),
		status:     atomic.NewString(string(types.ConnectionStatusIdle)),
	}
	if servers := registry.List(); len(servers) > 0 {
		s.Select(servers[0].ID)
	}
	return s
}

// Select makes serverID the current server and starts connecting to it.
// An empty ID clears the selection.
func (s *Session) Select(serverID string) error {
	if serverID == "" {
		s.clear()
		return nil
	}
	if _, ok := s.registry.Get(serverID); !ok {
		return ErrServerNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	gen := s.generation.Inc()
	s.serverID = serverID
	s.status.Store(string(types.ConnectionStatusConnecting))
	s.timer = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generation.Load() != gen {
			return
		}
		s.status.Store(string(types.ConnectionStatusConnected))
		s.timer = nil
		logrus.WithField("server_id", serverID).Info("Connected")
	})

	logrus.WithField("server_id", serverID).Info("Connecting")
	return nil
}

// ServerRemoved moves the selection to the first remaining server when the
// selected one was deleted
func (s *Session) ServerRemoved(serverID string) {
	s.mu.Lock()
	selected := s.serverID
	s.mu.Unlock()

	if selected != serverID {
		return
	}

	if servers := s.registry.List(); len(servers) > 0 {
		err := s.Select(servers[0].ID)
		if err == nil {
			return
		}
		logrus.WithError(err).WithField("server_id", servers[0].ID).Warn("Could not select the next server")
	}
	s.clear()
}

// clear drops the selection and goes idle
func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.generation.Inc()
	s.serverID = ""
	s.status.Store(string(types.ConnectionStatusIdle))
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Status returns the current connection status
func (s *Session) Status() types.ConnectionStatus {
	return types.ConnectionStatus(s.status.Load())
}

// State describes the selected server and its status
func (s *Session) State() types.SessionState {
	s.mu.Lock()
	state := types.SessionState{
		ServerID: s.serverID,
		Status:   s.Status(),
	}
	s.mu.Unlock()

	serverID := state.ServerID
	if serverID != "" {
		if server, ok := s.registry.Get(serverID); ok {
			state.Server = &server
		}
	}
	return state
}

// Close stops a pending connection timer
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.generation.Inc()
}
