package core

import (
	"testing"

	"gopper/protocol"
)

// dispatch looks up cmdName in the global command registry and runs its
// handler against a VLQ-encoded argument list, exercising the same
// RegisterCommand/Dispatch path the wire protocol drives.
func dispatch(t *testing.T, cmdName string, args ...int32) error {
	t.Helper()
	cmd, ok := GetGlobalRegistry().GetCommandByName(cmdName)
	if !ok {
		t.Fatalf("command %q not registered", cmdName)
	}
	var data []byte
	for _, a := range args {
		data = append(data, protocol.EncodeVLQ(a)...)
	}
	return DispatchCommand(cmd.ID, &data)
}

func TestConfigStepperDispatchRegistersStepper(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()
	RegisterStepperCommands()

	const oid = 10
	if err := dispatch(t, "config_stepper", oid, 0, 1, 0, 0); err != nil {
		t.Fatalf("config_stepper dispatch: %v", err)
	}

	s := GetStepper(oid)
	if s == nil {
		t.Fatal("expected stepper registered at oid 10 after config_stepper")
	}
	if s.stepPin != 0 || s.dirPin != 1 {
		t.Errorf("stepper pins = (%d,%d), want (0,1)", s.stepPin, s.dirPin)
	}
}

func TestQueueStepDispatchRunsMove(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()
	RegisterStepperCommands()

	const oid = 11
	if err := dispatch(t, "config_stepper", oid, 2, 3, 0, 0); err != nil {
		t.Fatalf("config_stepper dispatch: %v", err)
	}
	if err := dispatch(t, "reset_step_clock", oid, int32(GetTime())); err != nil {
		t.Fatalf("reset_step_clock dispatch: %v", err)
	}
	if err := dispatch(t, "queue_step", oid, 1000, 5, 0); err != nil {
		t.Fatalf("queue_step dispatch: %v", err)
	}

	s := GetStepper(oid)
	if !s.IsActive() {
		t.Fatal("expected stepper active after queue_step dispatch")
	}

	for i := 0; i < 50 && s.IsActive(); i++ {
		SetTime(s.timer.WakeTime)
		currentTime = GetTime()
		TimerDispatch()
	}
	if s.IsActive() {
		t.Fatal("move did not complete within iteration budget")
	}
	if got := s.GetPosition(); got != 5 {
		t.Errorf("GetPosition() = %d, want 5", got)
	}
}

func TestQueueStepDispatchUnknownOidErrors(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()
	RegisterStepperCommands()

	if err := dispatch(t, "queue_step", 99, 1000, 1, 0); err == nil {
		t.Error("expected error dispatching queue_step for an unconfigured oid")
	}
}

func TestSetNextStepDirDispatchFlipsFlag(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()
	RegisterStepperCommands()

	const oid = 12
	if err := dispatch(t, "config_stepper", oid, 4, 5, 0, 0); err != nil {
		t.Fatalf("config_stepper dispatch: %v", err)
	}
	if err := dispatch(t, "set_next_step_dir", oid, 1); err != nil {
		t.Fatalf("set_next_step_dir dispatch: %v", err)
	}

	s := GetStepper(oid)
	if s.flags&sfNextDir == 0 {
		t.Error("expected sfNextDir set after set_next_step_dir dispatch")
	}
}

func TestStepperGetPositionDispatchSendsResponse(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()
	RegisterStepperCommands()

	const oid = 13
	if err := dispatch(t, "config_stepper", oid, 6, 7, 0, 0); err != nil {
		t.Fatalf("config_stepper dispatch: %v", err)
	}
	// No global transport is configured in tests; SendResponse must no-op
	// rather than panic.
	if err := dispatch(t, "stepper_get_position", oid); err != nil {
		t.Fatalf("stepper_get_position dispatch: %v", err)
	}
}
