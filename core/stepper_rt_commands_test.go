package core

import "testing"

func TestConfigStepperRtModeDispatchSetsRtFields(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()
	RegisterStepperCommands()
	RegisterStepperRtCommands()

	const oid = 7
	if err := dispatch(t, "config_stepper", oid, 0, 1, 0, 0); err != nil {
		t.Fatalf("config_stepper dispatch: %v", err)
	}
	if err := dispatch(t, "config_stepper_rt_mode", oid, 100, 1, 100, 5000, 1000); err != nil {
		t.Fatalf("config_stepper_rt_mode dispatch: %v", err)
	}

	s := GetStepper(oid)
	if s.rt.controlFreq != 100 || s.rt.inputCycle != 1 || s.rt.inputFactor != 100 {
		t.Errorf("rt config = %+v, want controlFreq=100 inputCycle=1 inputFactor=100", s.rt)
	}
	if s.rt.maxFreq != 5000 || s.rt.maxAcc != 1000 {
		t.Errorf("rt maxFreq/maxAcc = %d/%d, want 5000/1000", s.rt.maxFreq, s.rt.maxAcc)
	}
	if s.rt.controlPeriod != clockFreq/100 {
		t.Errorf("controlPeriod = %d, want %d", s.rt.controlPeriod, clockFreq/100)
	}
}

func TestConfigStepperRtModeDispatchRejectsZeroAcceleration(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()
	RegisterStepperCommands()
	RegisterStepperRtCommands()

	const oid = 8
	if err := dispatch(t, "config_stepper", oid, 2, 3, 0, 0); err != nil {
		t.Fatalf("config_stepper dispatch: %v", err)
	}
	if err := dispatch(t, "config_stepper_rt_mode", oid, 100, 1, 100, 5000, 0); err == nil {
		t.Error("expected error from config_stepper_rt_mode with maxAcc=0")
	}
}

func TestSetRealtimeModeAndSetHostModeDispatch(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()
	RegisterStepperCommands()
	RegisterStepperRtCommands()

	const oid = 9
	if err := dispatch(t, "config_stepper", oid, 4, 5, 0, 0); err != nil {
		t.Fatalf("config_stepper dispatch: %v", err)
	}
	if err := dispatch(t, "config_stepper_rt_mode", oid, 100, 1, 100, 5000, 1000); err != nil {
		t.Fatalf("config_stepper_rt_mode dispatch: %v", err)
	}

	s := GetStepper(oid)
	now := int32(GetTime())
	if err := dispatch(t, "set_realtime_mode", oid, now, -1000, 1000); err != nil {
		t.Fatalf("set_realtime_mode dispatch: %v", err)
	}
	if s.toggleModeTimer.Handler == nil {
		t.Fatal("expected toggle timer armed after set_realtime_mode dispatch")
	}

	// Drive the toggle through so we exercise set_host_mode against a
	// stepper that has actually entered RealTime mode.
	currentTime = GetTime()
	TimerDispatch()
	RunToggleModeTask()
	if s.mode != ModeRealTime {
		t.Fatalf("mode after toggle = %v, want ModeRealTime", s.mode)
	}

	if err := dispatch(t, "set_host_mode", oid, int32(GetTime())+5000); err != nil {
		t.Fatalf("set_host_mode dispatch: %v", err)
	}
	if !s.rt.slowdownPending && !s.rt.slowdown {
		t.Error("expected set_host_mode dispatch to arm a slowdown back to Host mode")
	}

	RemoveTimer(&s.rt.controlTimer)
	RemoveTimer(&s.rt.stepTimer)
}

func TestSetRealtimeModeDispatchUnknownOidErrors(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()
	RegisterStepperCommands()
	RegisterStepperRtCommands()

	if err := dispatch(t, "set_realtime_mode", 98, int32(GetTime()), -1000, 1000); err == nil {
		t.Error("expected error dispatching set_realtime_mode for an unconfigured oid")
	}
}
