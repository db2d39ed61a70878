package engine

import (
	"context"
	"testing"

	"github.com/shadiayoub/okx-bot/internal/model"
)

func testSettings() model.SessionSettings {
	return model.SessionSettings{
		AutoTrading:       true,
		Leverage:          10,
		RiskPerTrade:      0.05,
		MinSignalStrength: 0.3,
		StopLossPct:       0.02,
		TakeProfitPct:     0.04,
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := NewSession(testSettings())
	if s.Status() != model.StatusStopped {
		t.Fatalf("new session must be STOPPED, got %s", s.Status())
	}

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := s.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if err := s.Pause(); err == nil {
		t.Error("pause from STOPPED must be rejected")
	}
	if err := s.Resume(); err == nil {
		t.Error("resume from STOPPED must be rejected")
	}
}

func TestSessionEmergencyStopIsTerminalUntilReset(t *testing.T) {
	s := NewSession(testSettings())
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	s.EmergencyStop()
	if s.Status() != model.StatusEmergencyStopped {
		t.Fatalf("expected EMERGENCY_STOPPED, got %s", s.Status())
	}

	if err := s.Start(); err == nil {
		t.Error("start from EMERGENCY_STOPPED must be rejected")
	}
	if err := s.Stop(); err == nil {
		t.Error("stop from EMERGENCY_STOPPED must be rejected")
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.Status() != model.StatusStopped {
		t.Fatalf("reset must land in STOPPED, got %s", s.Status())
	}
	if err := s.Start(); err != nil {
		t.Errorf("start after reset: %v", err)
	}
}

func TestSessionEmergencyStopCancelsTick(t *testing.T) {
	s := NewSession(testSettings())
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx, end, ok := s.BeginTick(context.Background())
	if !ok {
		t.Fatal("expected tick slot")
	}
	defer end()

	s.EmergencyStop()
	select {
	case <-ctx.Done():
	default:
		t.Error("emergency stop must cancel the in-flight tick context")
	}
}

func TestSessionRefusesOverlappingTicks(t *testing.T) {
	s := NewSession(testSettings())
	_, end, ok := s.BeginTick(context.Background())
	if !ok {
		t.Fatal("expected first tick slot")
	}

	if _, _, ok := s.BeginTick(context.Background()); ok {
		t.Error("second tick must be refused while the first is in flight")
	}

	end()
	_, end2, ok := s.BeginTick(context.Background())
	if !ok {
		t.Error("tick slot must be free after end")
	}
	end2()
}

func TestSessionSettingsCopy(t *testing.T) {
	s := NewSession(testSettings())
	got := s.Settings()
	got.Leverage = 99
	if s.Settings().Leverage != 10 {
		t.Error("Settings must return a copy")
	}

	s.SetAutoTrading(false)
	if s.Settings().AutoTrading {
		t.Error("SetAutoTrading(false) not applied")
	}
}
