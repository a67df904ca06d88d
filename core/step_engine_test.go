package core

import "testing"

func runUntilIdle(s *Stepper, t *testing.T, maxSteps int) {
	t.Helper()
	for i := 0; i < maxSteps && s.IsActive(); i++ {
		SetTime(s.timer.WakeTime)
		currentTime = GetTime()
		TimerDispatch()
	}
}

func TestQueueStepRunsToCompletion(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()

	s, err := NewStepper(0, 0, 1, false, 0)
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}
	if err := s.ResetStepClock(0); err != nil {
		t.Fatalf("ResetStepClock: %v", err)
	}

	if err := s.QueueStep(1000, 10, 0); err != nil {
		t.Fatalf("QueueStep: %v", err)
	}

	runUntilIdle(s, t, 100)

	if s.IsActive() {
		t.Fatal("expected stepper idle after queued move completed")
	}
	if s.totalSteps != 10 {
		t.Errorf("totalSteps = %d, want 10", s.totalSteps)
	}
	if got := s.GetPosition(); got != 10 {
		t.Errorf("GetPosition() = %d, want 10", got)
	}
}

func TestQueueStepZeroCountRejected(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()

	s, err := NewStepper(1, 2, 3, false, 0)
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}
	if err := s.QueueStep(1000, 0, 0); err != errInvalidCount {
		t.Errorf("QueueStep(count=0) error = %v, want errInvalidCount", err)
	}
}

func TestQueueStepAppendsToActiveMove(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()

	s, err := NewStepper(2, 4, 5, false, 0)
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}
	if err := s.ResetStepClock(0); err != nil {
		t.Fatalf("ResetStepClock: %v", err)
	}

	if err := s.QueueStep(1000, 5, 0); err != nil {
		t.Fatalf("QueueStep 1: %v", err)
	}
	if err := s.QueueStep(1000, 5, 0); err != nil {
		t.Fatalf("QueueStep 2: %v", err)
	}

	runUntilIdle(s, t, 100)

	if got := s.GetPosition(); got != 10 {
		t.Errorf("GetPosition() = %d, want 10 after two appended moves", got)
	}
}

func TestDirToggleFlipsDirPinBeforeStepping(t *testing.T) {
	ResetFirmwareState()
	gpio := withFakeGPIO()

	s, err := NewStepper(3, 6, 7, false, 0)
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}
	if err := s.ResetStepClock(0); err != nil {
		t.Fatalf("ResetStepClock: %v", err)
	}

	// Arm a reversed next-move direction before queuing: sfNextDir differs
	// from the initial sfLastDir (0), so the first move carries DirToggle.
	s.SetNextStepDir(1)
	if err := s.QueueStep(1000, 3, 0); err != nil {
		t.Fatalf("QueueStep: %v", err)
	}

	runUntilIdle(s, t, 100)

	if gpio.riseCount[s.dirPin] == 0 {
		t.Error("expected the dir pin to rise before stepping began")
	}
	if gpio.riseCount[s.stepPin] != 3 {
		t.Errorf("step pin rose %d times, want 3", gpio.riseCount[s.stepPin])
	}
}

func TestResetStepClockFailsWhileActive(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()

	s, err := NewStepper(4, 8, 9, false, 0)
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}
	if err := s.ResetStepClock(0); err != nil {
		t.Fatalf("ResetStepClock: %v", err)
	}
	if err := s.QueueStep(1000, 50, 0); err != nil {
		t.Fatalf("QueueStep: %v", err)
	}

	if err := s.ResetStepClock(100); err != errStepperActive {
		t.Errorf("ResetStepClock while active error = %v, want errStepperActive", err)
	}
	if !IsShutdown() {
		t.Error("expected ResetStepClock-while-active to trigger shutdown")
	}
}

func TestStopClearsQueueAndFreezesPosition(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()

	s, err := NewStepper(5, 10, 11, false, 0)
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}
	if err := s.ResetStepClock(0); err != nil {
		t.Fatalf("ResetStepClock: %v", err)
	}
	if err := s.QueueStep(1000, 5, 0); err != nil {
		t.Fatalf("QueueStep 1: %v", err)
	}
	if err := s.QueueStep(1000, 5, 0); err != nil {
		t.Fatalf("QueueStep 2: %v", err)
	}

	// Run a few steps, then stop mid-move.
	for i := 0; i < 3; i++ {
		SetTime(s.timer.WakeTime)
		currentTime = GetTime()
		TimerDispatch()
	}
	posBeforeStop := s.GetPosition()

	s.Stop()

	if s.IsActive() {
		t.Error("expected stepper inactive after Stop")
	}
	if s.first != nil {
		t.Error("expected queued moves dropped after Stop")
	}
	if got := s.GetPosition(); got != posBeforeStop {
		t.Errorf("GetPosition() after Stop = %d, want unchanged %d", got, posBeforeStop)
	}
}

func TestStopCancelsRealTimeTimersAndFoldsPosition(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()

	s, err := NewStepper(6, 12, 13, false, 0)
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}
	s.mode = ModeRealTime
	s.rt.count = 77
	s.rt.dirSave = 0
	s.rt.currentPeriod = 1000 // nonzero: rtStepEvent would step and bump count
	s.rt.controlTimer.Handler = s.rtControlEvent
	s.rt.stepTimer.Handler = s.rtStepEvent
	ScheduleTimer(&s.rt.controlTimer)
	ScheduleTimer(&s.rt.stepTimer)

	s.Stop()

	if s.mode != ModeHost {
		t.Errorf("mode after Stop = %v, want ModeHost", s.mode)
	}
	if s.rt.slowdown {
		t.Error("expected slowdown flag cleared after Stop")
	}
	if got := s.GetPosition(); got != s.rt.count {
		t.Errorf("GetPosition() after Stop = %d, want rt.count %d", got, s.rt.count)
	}

	// If Stop had left rt.controlTimer/rt.stepTimer armed, advancing past
	// their wake times and dispatching would fire rtStepEvent and bump
	// totalSteps/rt.count even though the stepper is back in Host mode.
	countBefore, stepsBefore := s.rt.count, s.totalSteps
	SetTime(GetTime() + 10000)
	currentTime = GetTime()
	TimerDispatch()
	if s.rt.count != countBefore || s.totalSteps != stepsBefore {
		t.Error("rt timer fired after Stop: controlTimer/stepTimer were not cancelled")
	}
}

func TestDelayModeDoublesPulseAccounting(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()

	s, err := NewStepper(6, 12, 13, false, 0)
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}
	s.SetStepDelay(TimerFromUS(2))
	if err := s.ResetStepClock(0); err != nil {
		t.Fatalf("ResetStepClock: %v", err)
	}
	if err := s.QueueStep(1000, 4, 0); err != nil {
		t.Fatalf("QueueStep: %v", err)
	}

	runUntilIdle(s, t, 200)

	if s.totalSteps != 4 {
		t.Errorf("totalSteps = %d, want 4 (one Step() call per rising edge only)", s.totalSteps)
	}
	if got := s.GetPosition(); got != 4 {
		t.Errorf("GetPosition() = %d, want 4", got)
	}
}
