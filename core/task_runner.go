package core

// task_runner.go bridges interrupt-context timer handlers to the
// cooperative task context the real-time controller and mode switch need
// for their heavier arithmetic and timer setup. Mirrors Klipper's
// DECL_TASK(rt_control_task)/DECL_TASK(toggle_mode_task), which run once
// per main-loop iteration off a pending flag set from timer context; the
// non-blocking channel send/drain here is the same shape as debug.go's
// DebugAsync/debugOutputWorker wake pattern.

var (
	rtControlPending  = make(chan *Stepper, maxSteppers)
	toggleModePending = make(chan *Stepper, maxSteppers)
)

// wakeRtControlTask signals that s's control period has elapsed. Called
// from rtControlEvent (timer/interrupt context); non-blocking, since a full
// channel just means the previous wake hasn't been drained yet and one run
// of rtControlRun will cover both.
func wakeRtControlTask(s *Stepper) {
	select {
	case rtControlPending <- s:
	default:
	}
}

// wakeToggleModeTask signals that s has a pending Host<->RealTime
// transition to perform. Called from toggleModeEvent.
func wakeToggleModeTask(s *Stepper) {
	select {
	case toggleModePending <- s:
	default:
	}
}

// RunRtControlTask drains all pending real-time control wakes, running
// each stepper's control loop once. Call from the main cooperative loop.
func RunRtControlTask() {
	for {
		select {
		case s := <-rtControlPending:
			s.rtControlRun()
		default:
			return
		}
	}
}

// RunToggleModeTask drains all pending mode-toggle wakes, performing the
// deferred Host<->RealTime transition outside interrupt context. Mirrors
// toggle_mode_task.
func RunToggleModeTask() {
	for {
		select {
		case s := <-toggleModePending:
			if !s.togglePending {
				continue
			}
			s.togglePending = false
			if s.mode == ModeHost {
				s.hostToRealtimeMode()
			} else {
				s.realtimeToHostMode()
			}
		default:
			return
		}
	}
}
