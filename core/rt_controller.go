package core

import "gopper/protocol"

// rt_controller.go implements the real-time sensor-driven speed controller
// (Component C), ported from original_source/src/stepper.c's
// rt_control_run / get_error. It runs in task context (RunRtControlTask),
// woken once per control period by rtControlEvent.

func clampI32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absI32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func maxI32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// lowPass is the error sensor's low-pass filter carrier, shared across every
// stepper exactly like stepper.c:384's single process-global low_pass -
// flagged in DESIGN.md/SPEC_FULL.md Open Question 1 as a behavioral-parity
// decision, not an oversight.
var lowPass int32

// sampleError reads the position/error sensor and low-pass filters the
// reading. Mirrors get_error: val = raw - 1024; low_pass = (low_pass+val)/2.
func (s *Stepper) sampleError() int32 {
	if s.rt.sensor == nil {
		return lowPass
	}
	raw, err := s.rt.sensor.ReadRaw()
	if err != nil {
		return lowPass
	}
	val := int32(raw) - 1024
	lowPass = (lowPass + val) / 2
	return lowPass
}

func (s *Stepper) emitRtLog(pos, errVal int32) {
	SendResponse("stepper_rt_log", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(s.oid))
		protocol.EncodeVLQInt(output, pos)
		protocol.EncodeVLQInt(output, errVal)
	})
}

// rtControlRun is the control loop body: sample the error sensor every
// inputCycle calls, derive a target speed, clamp it against the position
// envelope and any in-progress slowdown deadline, ramp current speed toward
// it at max_acc, and reflect direction changes onto the dir pin. Mirrors
// rt_control_run.
func (s *Stepper) rtControlRun() {
	rt := &s.rt

	if rt.cycleCount == 0 {
		errVal := s.sampleError()
		s.emitRtLog(rt.count, errVal)
		RecordTiming(EvtRtSample, s.oid, GetTime(), uint32(rt.count), uint32(errVal))
		target := errVal * rt.inputFactor
		rt.targetSpeed = clampI32(target, -int32(rt.maxFreq), int32(rt.maxFreq))
	}
	targetSpeed := rt.targetSpeed

	// Position envelope: start braking early enough that the stepper can't
	// run past min_pos/max_pos at the current acceleration limit.
	distToMin := maxI32(0, rt.count-(rt.minPos+1))
	distToMax := maxI32(0, (rt.maxPos-1)-rt.count)
	stepsToStop := int32((rt.maxFreq*rt.maxFreq)/(2*rt.maxAcc)) + int32(2*rt.maxFreq/uint32(rt.controlFreq))

	switch {
	case targetSpeed > 0 && distToMax <= stepsToStop:
		if limit := int32(isqrt(rt.maxAcc * uint32(distToMax))); limit < targetSpeed {
			targetSpeed = limit
		}
	case targetSpeed < 0 && distToMin <= stepsToStop:
		if limit := int32(isqrt(rt.maxAcc * uint32(distToMin))); -limit > targetSpeed {
			targetSpeed = -limit
		}
	}

	if rt.slowdown {
		if rt.freqLimiter < rt.maxDeltaFreq {
			s.finishSlowdown()
			return
		}
		rt.freqLimiter -= rt.maxDeltaFreq
		targetSpeed = clampI32(targetSpeed, -rt.freqLimiter, rt.freqLimiter)
	}

	delta := clampI32(targetSpeed-rt.currentSpeed, -rt.maxDeltaFreq, rt.maxDeltaFreq)
	rt.currentSpeed += delta

	if absI32(rt.currentSpeed) < int32(rt.minFreq) {
		rt.currentSpeed = 0
	}

	if rt.currentSpeed != 0 {
		rt.currentPeriod = clockFreq / uint32(absI32(rt.currentSpeed))
	} else {
		rt.currentPeriod = 0
	}

	wantDir := uint8(0)
	if rt.currentSpeed < 0 {
		wantDir = 1
	}
	if wantDir != rt.currentDir {
		state := disableInterrupts()
		s.physDir = wantDir != 0
		s.backend.SetDirection(s.physDir)
		rt.currentDir = wantDir
		restoreInterrupts(state)
	}

	rt.cycleCount = (rt.cycleCount + 1) % rt.inputCycle
}

// finishSlowdown completes the deceleration ramp armed by scheduleSlowdown:
// it tears down the two real-time timers, restores the dir pin to the value
// it had when real-time mode was entered, folds rt.count back into the
// sign-bit-aware position encoding, and hands the stepper back to the host
// queue. Mirrors the slowdown-completion branch inside rt_control_run.
func (s *Stepper) finishSlowdown() {
	rt := &s.rt

	RemoveTimer(&rt.controlTimer)
	RemoveTimer(&rt.stepTimer)

	s.physDir = rt.dirSave != 0
	s.backend.SetDirection(s.physDir)

	if s.position&0x80000000 != 0 {
		s.position = (0 - (uint32(rt.count) + positionBias)) | 0x80000000
	} else {
		s.position = uint32(rt.count) + positionBias
	}

	rt.slowdown = false
	s.mode = ModeHost
	RecordTiming(EvtModeSwitch, s.oid, GetTime(), uint32(ModeHost), 0)
}
