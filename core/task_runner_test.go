package core

import "testing"

func drainTaskChannels() {
	for {
		select {
		case <-rtControlPending:
		case <-toggleModePending:
		default:
			return
		}
	}
}

func TestWakeRtControlTaskNonBlockingWhenFull(t *testing.T) {
	drainTaskChannels()

	for i := 0; i < maxSteppers; i++ {
		wakeRtControlTask(&Stepper{})
	}
	// Channel is now at capacity; one more wake must not block. If it did,
	// this goroutine would never close done and the test would hang.
	done := make(chan struct{})
	go func() {
		wakeRtControlTask(&Stepper{})
		close(done)
	}()
	<-done

	drainTaskChannels()
}

func TestRunRtControlTaskDrainsAndRunsControlLoop(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()
	drainTaskChannels()

	s, err := NewStepper(0, 0, 1, false, 0)
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}
	s.mode = ModeRealTime
	s.rt.inputCycle = 1
	s.rt.inputFactor = 100
	s.rt.maxFreq = 10000
	s.rt.maxAcc = 1000
	s.rt.controlFreq = 100
	s.rt.controlPeriod = clockFreq / uint32(s.rt.controlFreq)
	s.rt.maxDeltaFreq = int32(s.rt.maxAcc / uint32(s.rt.controlFreq))
	s.rt.minFreq = 1
	s.rt.maxPos = 1 << 20
	s.rt.minPos = -(1 << 20)
	s.SetSensor(&FakeTwoWireSensor{Raw: 1024 + 50})

	wakeRtControlTask(s)
	RunRtControlTask()

	if s.rt.currentSpeed == 0 {
		t.Error("expected RunRtControlTask to have run rtControlRun and moved currentSpeed off 0")
	}

	// A second drain on an empty channel must return immediately and do nothing.
	RunRtControlTask()
}

func TestRunToggleModeTaskSkipsStaleWakeAndRunsPendingOne(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()
	drainTaskChannels()

	stale, err := NewStepper(1, 2, 3, false, 0)
	if err != nil {
		t.Fatalf("NewStepper stale: %v", err)
	}
	// Never actually armed: togglePending stays false, so the drain must
	// skip it rather than acting on a stepper that has nothing to do.
	wakeToggleModeTask(stale)

	pending, err := NewStepper(2, 4, 5, false, 0)
	if err != nil {
		t.Fatalf("NewStepper pending: %v", err)
	}
	configureRt(pending)
	pending.togglePending = true
	pending.mode = ModeHost
	wakeToggleModeTask(pending)

	RunToggleModeTask()

	if stale.mode != ModeHost {
		t.Errorf("stale stepper mode = %v, want unchanged ModeHost", stale.mode)
	}
	if pending.mode != ModeRealTime {
		t.Errorf("pending stepper mode = %v, want ModeRealTime after drain", pending.mode)
	}
	if pending.togglePending {
		t.Error("expected togglePending cleared after drain")
	}

	RemoveTimer(&pending.rt.controlTimer)
	RemoveTimer(&pending.rt.stepTimer)
}
