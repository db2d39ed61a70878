package engine

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/shadiayoub/okx-bot/internal/model"
)

// Session is the single process-wide trading session. All mutations go
// through the named transitions below, never direct field writes, and
// every transition except EmergencyStop waits for an in-progress tick
// to finish. EmergencyStop preempts: it flips the status immediately and
// cancels the in-flight tick context, so no further orders are placed
// even mid-tick.
type Session struct {
	mu       sync.Mutex
	tick     sync.Mutex // held by the scheduler for the duration of a tick
	status   model.SessionStatus
	settings model.SessionSettings

	tickCancel context.CancelFunc
}

// NewSession starts in STOPPED with the given settings. The settings are
// assumed validated at configuration load; an invalid configuration must
// never produce a Session at all.
func NewSession(settings model.SessionSettings) *Session {
	return &Session{
		status:   model.StatusStopped,
		settings: settings,
	}
}

// Status returns the current lifecycle state.
func (s *Session) Status() model.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Settings returns the per-tick immutable copy of the trading parameters.
func (s *Session) Settings() model.SessionSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings replaces the trading parameters, mutually exclusive
// with an in-progress tick so sizing never sees a torn update.
func (s *Session) UpdateSettings(settings model.SessionSettings) {
	s.tick.Lock()
	defer s.tick.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// SetAutoTrading toggles automatic execution without touching the rest
// of the settings.
func (s *Session) SetAutoTrading(enabled bool) {
	s.tick.Lock()
	defer s.tick.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.AutoTrading = enabled
}

// Start transitions STOPPED -> RUNNING.
func (s *Session) Start() error {
	return s.transition(model.StatusRunning, model.StatusStopped)
}

// Stop transitions RUNNING or PAUSED -> STOPPED.
func (s *Session) Stop() error {
	return s.transition(model.StatusStopped, model.StatusRunning, model.StatusPaused)
}

// Pause transitions RUNNING -> PAUSED.
func (s *Session) Pause() error {
	return s.transition(model.StatusPaused, model.StatusRunning)
}

// Resume transitions PAUSED -> RUNNING.
func (s *Session) Resume() error {
	return s.transition(model.StatusRunning, model.StatusPaused)
}

func (s *Session) transition(to model.SessionStatus, from ...model.SessionStatus) error {
	s.tick.Lock()
	defer s.tick.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range from {
		if s.status == f {
			log.Printf("[INFO] session %s -> %s", s.status, to)
			s.status = to
			return nil
		}
	}
	return fmt.Errorf("illegal session transition %s -> %s", s.status, to)
}

// EmergencyStop halts the session from any state. It does not wait for
// the tick lock: the in-flight tick context is cancelled instead, which
// wins any race against order placement. Terminal until Reset.
func (s *Session) EmergencyStop() {
	s.mu.Lock()
	s.status = model.StatusEmergencyStopped
	cancel := s.tickCancel
	s.tickCancel = nil
	s.mu.Unlock()

	log.Printf("[WARN] session EMERGENCY_STOPPED")
	if cancel != nil {
		cancel()
	}
}

// Reset transitions EMERGENCY_STOPPED -> STOPPED. The engine force-closes
// all open positions before calling this.
func (s *Session) Reset() error {
	s.tick.Lock()
	defer s.tick.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != model.StatusEmergencyStopped {
		return fmt.Errorf("reset requires EMERGENCY_STOPPED, session is %s", s.status)
	}
	log.Printf("[INFO] session %s -> %s", s.status, model.StatusStopped)
	s.status = model.StatusStopped
	return nil
}

// BeginTick acquires the tick slot if no tick is in flight and returns a
// context the session can preempt. Returns ok=false when the previous
// tick is still running.
func (s *Session) BeginTick(parent context.Context) (context.Context, func(), bool) {
	if !s.tick.TryLock() {
		return nil, nil, false
	}
	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.tickCancel = cancel
	s.mu.Unlock()

	end := func() {
		s.mu.Lock()
		if s.tickCancel != nil {
			s.tickCancel = nil
		}
		s.mu.Unlock()
		cancel()
		s.tick.Unlock()
	}
	return ctx, end, true
}
