package core

import "testing"

func configureRt(s *Stepper) {
	s.rt.controlFreq = 100
	s.rt.inputCycle = 1
	s.rt.inputFactor = 1
	s.rt.maxFreq = 5000
	s.rt.maxAcc = 1000
	s.rt.controlPeriod = clockFreq / uint32(s.rt.controlFreq)
	s.rt.maxDeltaFreq = int32(s.rt.maxAcc / uint32(s.rt.controlFreq))
	s.rt.minFreq = 10
}

func TestSetRealtimeModeRejectsDoubleArm(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()

	s, err := NewStepper(0, 0, 1, false, 0)
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}
	configureRt(s)

	if err := s.SetRealtimeMode(GetTime()+1000, -100, 100); err != nil {
		t.Fatalf("first SetRealtimeMode: %v", err)
	}
	if err := s.SetRealtimeMode(GetTime()+1000, -100, 100); err != errRealtimeTwice {
		t.Errorf("second SetRealtimeMode error = %v, want errRealtimeTwice", err)
	}
	if !IsShutdown() {
		t.Error("expected double-arm to trigger shutdown")
	}
	RemoveTimer(&s.toggleModeTimer)
}

func TestSetRealtimeModeTransitionsViaToggleTask(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()

	s, err := NewStepper(1, 2, 3, false, 0)
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}
	configureRt(s)

	now := GetTime()
	if err := s.SetRealtimeMode(now, -1000, 1000); err != nil {
		t.Fatalf("SetRealtimeMode: %v", err)
	}

	currentTime = GetTime()
	TimerDispatch() // fires toggleModeEvent -> sets togglePending, wakes task

	if !s.togglePending {
		t.Fatal("expected togglePending set after toggleModeEvent fired")
	}

	RunToggleModeTask()

	if s.mode != ModeRealTime {
		t.Errorf("mode after toggle task = %v, want ModeRealTime", s.mode)
	}
	if s.rt.controlTimer.Handler == nil || s.rt.stepTimer.Handler == nil {
		t.Error("expected control/step timers armed after entering realtime mode")
	}

	// Clean up so no timers leak into later tests.
	RemoveTimer(&s.rt.controlTimer)
	RemoveTimer(&s.rt.stepTimer)
}

func TestSetHostModeDeferredUntilRealtimeEntered(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()

	s, err := NewStepper(2, 4, 5, false, 0)
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}
	configureRt(s)

	// Still in Host mode (never armed realtime): SetHostMode should just
	// record the request instead of touching any timer.
	s.SetHostMode(GetTime() + 5000)

	if !s.rt.slowdownPending {
		t.Error("expected slowdownPending recorded while still in Host mode")
	}
}

func TestScheduleSlowdownImmediateWhenDeadlinePassed(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()

	s, err := NewStepper(3, 6, 7, false, 0)
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}
	configureRt(s)
	s.mode = ModeRealTime

	SetTime(10000)
	s.scheduleSlowdown(GetTime()) // deadline already due

	if !s.rt.slowdown {
		t.Error("expected slowdown to start immediately when the deadline has already passed")
	}
}
