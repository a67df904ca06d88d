package core

import "errors"

// StepEngine: the host-queued move engine (Component B). Ported from
// Klipper's command_queue_step / stepper_load_next / stepper_event family in
// original_source/src/stepper.c.

var errInvalidCount = errors.New("invalid count parameter")
var errStepperActive = errors.New("can't reset time when stepper active")

// QueueStep appends a move to the stepper's queue, starting it immediately
// if the stepper is currently idle. Mirrors command_queue_step exactly,
// including the SF_NO_NEXT_CHECK/SF_LAST_RESET/SF_NEED_RESET flag dance and
// the silent-drop behavior for moves that arrive while SF_NEED_RESET is set
// (a stop/shutdown happened and reset_step_clock hasn't re-armed the
// stepper yet).
func (s *Stepper) QueueStep(interval uint32, count uint16, add int16) error {
	if count == 0 {
		return errInvalidCount
	}

	m, err := movePool.Alloc()
	if err != nil {
		TryShutdown("Move pool exhausted")
		return err
	}
	m.Interval = interval
	m.Count = count
	m.Add = add
	m.Flags = 0

	state := disableInterrupts()
	defer restoreInterrupts(state)

	flags := s.flags
	if (flags&sfLastDir != 0) != (flags&sfNextDir != 0) {
		flags ^= sfLastDir
		m.Flags |= MoveFlagDirToggle
	}
	flags &^= sfNoNextCheck
	if m.Count == 1 && (m.Flags != 0 || flags&sfLastReset != 0) {
		// count=1 moves right after a reset or dir change can have a
		// short interval safely.
		flags |= sfNoNextCheck
	}
	flags &^= sfLastReset

	switch {
	case s.count != 0:
		// Stepper is mid-move: append to the queue.
		s.flags = flags
		*s.plast = m
		s.plast = &m.next
	case flags&sfNeedReset != 0:
		// Stopped and not yet re-synced via reset_step_clock: drop the
		// move silently rather than shutting down.
		movePool.Free(m)
	default:
		s.flags = flags
		s.first = m
		s.plast = &m.next
		s.loadNext(s.nextStepTime + m.Interval)
		ScheduleTimer(&s.timer)
	}
	return nil
}

// SetNextStepDir records the direction the next queued move should run in.
func (s *Stepper) SetNextStepDir(dir uint8) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	if dir != 0 {
		s.flags |= sfNextDir
	} else {
		s.flags &^= sfNextDir
	}
}

// ResetStepClock sets the absolute clock time the next queued move's first
// step is relative to. Fatal if the stepper is mid-move.
func (s *Stepper) ResetStepClock(clock uint32) error {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	if s.count != 0 {
		TryShutdown("Can't reset time when stepper active")
		return errStepperActive
	}
	s.nextStepTime = clock
	s.flags = (s.flags &^ sfNeedReset) | sfLastReset
	return nil
}

// Stop immediately halts stepping, drops the queue, and forces the outputs
// to a safe idle state. Mirrors stepper_stop, generalized to also tear down
// the real-time sub-state: a stepper can be shut down while RtController/
// RtStepper own it, and their timers must be cancelled too or the step pin
// keeps toggling after shutdown.
func (s *Stepper) Stop() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if s.mode == ModeRealTime {
		s.realtimeToHostMode()
	} else {
		s.position = s.getPositionRawLocked()
	}

	RemoveTimer(&s.timer)
	RemoveTimer(&s.toggleModeTimer)
	s.toggleModeTimer.Handler = nil
	s.togglePending = false
	s.nextStepTime = 0
	s.count = 0
	s.flags = (s.flags & sfInvertStep) | sfNeedReset
	s.physDir = false
	s.backend.SetDirection(false)
	s.backend.Stop()

	for s.first != nil {
		next := s.first.next
		movePool.Free(s.first)
		s.first = next
	}
	s.plast = &s.first
}

// GetPosition returns the externally-reported net step position: the
// internal biased/sign-corrected accumulator minus positionBias. Mirrors
// command_stepper_get_position's "pos = position - POSITION_BIAS".
func (s *Stepper) GetPosition() int32 {
	state := disableInterrupts()
	raw := s.getPositionRawLocked()
	restoreInterrupts(state)
	return int32(raw - positionBias)
}

// getPositionRawLocked returns the biased position word, correcting for an
// in-flight move's pending (not-yet-executed) steps and for the
// direction-reversal sign flip. Caller must hold the critical section.
// Mirrors stepper_get_position.
func (s *Stepper) getPositionRawLocked() uint32 {
	position := s.position
	if s.stepDelayTicks == 0 {
		position -= s.count
	} else {
		position -= s.count / 2
	}
	if position&0x80000000 != 0 {
		return 0 - position
	}
	return position
}

// loadNext pulls the next Move off the queue into the active step state.
// minNextTime is only consulted in delay-mode configurations, where it
// bounds how soon the first step of the new move may land relative to the
// unstep of the move that just finished. Mirrors stepper_load_next.
func (s *Stepper) loadNext(minNextTime uint32) uint8 {
	m := s.first
	if m == nil {
		if s.interval-uint32(int32(s.add)) < s.minStopInterval && s.flags&sfNoNextCheck == 0 {
			TryShutdown("No next step")
		}
		s.count = 0
		return SF_DONE
	}

	s.nextStepTime += m.Interval
	s.add = m.Add
	s.interval = m.Interval + uint32(int32(m.Add))

	if s.stepDelayTicks == 0 {
		s.count = uint32(m.Count)
		s.timer.WakeTime = s.nextStepTime
	} else {
		if int32(s.nextStepTime-minNextTime) < 0 {
			if int32(s.nextStepTime-minNextTime) < -int32(TimerFromUS(1000)) {
				TryShutdown("Stepper too far in past")
			}
			s.timer.WakeTime = minNextTime
		} else {
			s.timer.WakeTime = s.nextStepTime
		}
		s.count = uint32(m.Count) * 2
	}

	if m.DirToggle() {
		s.position = (0 - s.position) + uint32(m.Count)
		if s.mode == ModeRealTime {
			s.rt.dirSave ^= 1
		} else {
			s.physDir = !s.physDir
			s.backend.SetDirection(s.physDir)
		}
	} else {
		s.position += uint32(m.Count)
	}

	s.first = m.next
	if s.first == nil {
		s.plast = &s.first
	}
	movePool.Free(m)
	return SF_RESCHEDULE
}

// stepperEvent is the timer handler installed on s.timer; it dispatches to
// the no-delay or delay-mode pulse generator depending on SetStepDelay.
func (s *Stepper) stepperEvent(t *Timer) uint8 {
	if s.stepDelayTicks == 0 {
		return s.stepperEventNoDelay(t)
	}
	return s.stepperEventDelayed(t)
}

// stepperEventNoDelay is the fast path: one Step() call emits a complete
// pulse, so one timer event corresponds to one step. Mirrors
// stepper_event_nodelay.
func (s *Stepper) stepperEventNoDelay(t *Timer) uint8 {
	s.backend.Step()
	s.totalSteps++

	count := s.count - 1
	if count != 0 {
		s.count = count
		t.WakeTime += s.interval
		s.interval += uint32(int32(s.add))
		return SF_RESCHEDULE
	}
	return s.loadNext(0)
}

// stepperEventDelayed handles the delay-mode configuration, where a step is
// split into a rising-edge sub-event and a falling-edge (unstep) sub-event
// scheduled stepDelayTicks later, doubling the event count per step. The
// pulse itself is only emitted on the rising-edge sub-event; Backend.Step
// already represents a complete pulse so the falling-edge sub-event is a
// pure bookkeeping step. Mirrors the CONFIG_STEP_DELAY>0 branch of
// stepper_event, including its reschedule_min soft-degradation path.
func (s *Stepper) stepperEventDelayed(t *Timer) uint8 {
	s.count--
	minNextTime := GetTime() + s.stepDelayTicks

	if s.count&1 != 0 {
		// Rising edge: emit the pulse, schedule the matching unstep.
		s.backend.Step()
		s.totalSteps++
		t.WakeTime = minNextTime
		return SF_RESCHEDULE
	}

	if s.count != 0 {
		s.nextStepTime += s.interval
		s.interval += uint32(int32(s.add))
		if int32(s.nextStepTime-minNextTime) < 0 {
			t.WakeTime = minNextTime
			return SF_RESCHEDULE
		}
		t.WakeTime = s.nextStepTime
		return SF_RESCHEDULE
	}

	return s.loadNext(minNextTime)
}

// IsActive reports whether the stepper has a move in flight or queued.
func (s *Stepper) IsActive() bool {
	return s.count != 0 || s.first != nil
}
