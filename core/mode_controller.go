package core

import "errors"

// mode_controller.go is Component E: the Host<->RealTime mode switch,
// ported from rt_control_event / toggle_mode_event / schedule_slowdown /
// host_to_realtime_mode / realtime_to_host_mode / command_set_host_mode /
// command_set_realtime_mode.

var errRealtimeTwice = errors.New("prevent stepper realtime mode enable twice")

// rtControlEvent is rt.controlTimer's handler: re-arm at the next control
// period and wake the control task. Mirrors rt_control_event.
func (s *Stepper) rtControlEvent(t *Timer) uint8 {
	t.WakeTime += s.rt.controlPeriod
	wakeRtControlTask(s)
	return SF_RESCHEDULE
}

// toggleModeEvent fires at the host-requested Host->RealTime deadline. It
// flags the stepper pending and disarms itself (one-shot), handing the
// actual transition to the cooperative toggle-mode task so the (nontrivial)
// setup in hostToRealtimeMode doesn't run on the interrupt stack. Mirrors
// toggle_mode_event.
func (s *Stepper) toggleModeEvent(t *Timer) uint8 {
	s.togglePending = true
	wakeToggleModeTask(s)
	t.Handler = nil
	return SF_DONE
}

// scheduleSlowdown arms the deceleration ramp that brings a real-time-mode
// stepper to a safe stop by clock, or starts it immediately if clock is
// already closer than one full ramp away. Mirrors schedule_slowdown; the
// timer-driven path here is a plain closure instead of re-tagging the
// shared toggle_mode_timer's function pointer.
func (s *Stepper) scheduleSlowdown(clock uint32) {
	rt := &s.rt
	if rt.maxDeltaFreq == 0 || rt.controlPeriod == 0 {
		return
	}

	rampTicks := rt.controlPeriod * (rt.maxFreq / uint32(rt.maxDeltaFreq))
	armAt := clock - rampTicks

	if int32(armAt-GetTime()) <= 0 {
		s.startSlowdown(clock)
		return
	}

	RemoveTimer(&s.toggleModeTimer)
	s.toggleModeTimer.WakeTime = armAt
	s.toggleModeTimer.Handler = func(t *Timer) uint8 {
		s.startSlowdown(clock)
		t.Handler = nil
		return SF_DONE
	}
	ScheduleTimer(&s.toggleModeTimer)
}

// startSlowdown sets the initial freq_limiter budget for the ramp, scaled
// by however much of the ramp's duration is actually left to run.
// rtControlRun decrements freqLimiter by maxDeltaFreq every control period
// until it drops below maxDeltaFreq, at which point finishSlowdown ends the
// ramp and returns the stepper to Host mode.
func (s *Stepper) startSlowdown(clock uint32) {
	rt := &s.rt
	restTime := int32(clock - GetTime())
	if restTime < 0 {
		restTime = 0
	}
	rt.freqLimiter = rt.maxDeltaFreq * restTime / int32(rt.controlPeriod)
	rt.slowdown = true
	RecordTiming(EvtSlowdownStart, s.oid, GetTime(), uint32(rt.freqLimiter), clock)
}

// hostToRealtimeMode seeds the real-time substate from the stepper's
// current position and arms the control/step timers. Mirrors
// host_to_realtime_mode.
func (s *Stepper) hostToRealtimeMode() {
	rt := &s.rt

	if s.flags&sfLastDir != 0 {
		s.physDir = !s.physDir
		s.backend.SetDirection(s.physDir)
		rt.dirSave = 1
	} else {
		rt.dirSave = 0
	}

	rt.count = s.GetPosition()
	rt.currentDir = 0
	rt.slowdown = false
	rt.currentPeriod = 0
	rt.currentSpeed = 0
	rt.cycleCount = 0
	rt.lastStep = 0

	now := GetTime()
	rt.controlTimer.Handler = s.rtControlEvent
	rt.controlTimer.WakeTime = now + clockFreq/10000
	ScheduleTimer(&rt.controlTimer)

	rt.stepTimer.Handler = s.rtStepEvent
	rt.stepTimer.WakeTime = now + clockFreq/5000
	ScheduleTimer(&rt.stepTimer)

	s.mode = ModeRealTime
	RecordTiming(EvtModeSwitch, s.oid, now, uint32(ModeRealTime), 0)

	if rt.slowdownPending {
		s.scheduleSlowdown(rt.slowdownClock)
		rt.slowdownPending = false
	}
}

// realtimeToHostMode forces an immediate (non-ramped) return to Host mode,
// used by Stop for an emergency halt of a real-time-mode stepper rather
// than the graceful schedule_slowdown ramp. Folds rt.count back into
// s.position exactly like finishSlowdown, since the host queue's position
// accounting has been dormant since hostToRealtimeMode.
func (s *Stepper) realtimeToHostMode() {
	rt := &s.rt
	RemoveTimer(&rt.controlTimer)
	RemoveTimer(&rt.stepTimer)
	rt.slowdown = false
	if s.position&0x80000000 != 0 {
		s.position = (0 - (uint32(rt.count) + positionBias)) | 0x80000000
	} else {
		s.position = uint32(rt.count) + positionBias
	}
	s.mode = ModeHost
	RecordTiming(EvtModeSwitch, s.oid, GetTime(), uint32(ModeHost), 0)
}

// SetHostMode requests that a real-time-mode stepper hand control back to
// the host queue by clock. If the stepper hasn't entered real-time mode yet
// (host_to_realtime_mode is still pending), the request is deferred until
// it does. Mirrors command_set_host_mode.
func (s *Stepper) SetHostMode(clock uint32) {
	if s.mode == ModeRealTime {
		s.scheduleSlowdown(clock)
		return
	}
	s.rt.slowdownPending = true
	s.rt.slowdownClock = clock
}

// SetRealtimeMode arms the Host->RealTime transition at clock, recording
// the position envelope the control loop should enforce. Rejects a second
// arm attempt while one is already pending. Mirrors command_set_realtime_mode.
func (s *Stepper) SetRealtimeMode(clock uint32, minPos, maxPos int32) error {
	if s.mode != ModeHost || s.toggleModeTimer.Handler != nil {
		TryShutdown("Prevent stepper realtime mode enable twice.")
		return errRealtimeTwice
	}
	s.rt.minPos = minPos
	s.rt.maxPos = maxPos
	s.toggleModeTimer.WakeTime = clock
	s.toggleModeTimer.Handler = s.toggleModeEvent
	ScheduleTimer(&s.toggleModeTimer)
	return nil
}
