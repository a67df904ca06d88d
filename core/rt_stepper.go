package core

// rt_stepper.go is Component D: the real-time mode step pulse generator,
// ported from rt_step_event. It runs as rt.stepTimer's handler, driven by
// the speed rtControlRun computes rather than a pre-planned Move queue.

const clockFreq = TimerFreq

func (s *Stepper) rtStepEvent(t *Timer) uint8 {
	rt := &s.rt

	if rt.currentPeriod == 0 {
		// Idle: keep the timer alive at the control period so it's ready
		// to resume the instant rtControlRun picks a nonzero speed.
		t.WakeTime += rt.controlPeriod
		return SF_RESCHEDULE
	}

	s.backend.Step()
	s.totalSteps++
	rt.lastStep = t.WakeTime
	t.WakeTime += rt.currentPeriod

	if rt.currentDir != 0 {
		rt.count--
	} else {
		rt.count++
	}
	return SF_RESCHEDULE
}
