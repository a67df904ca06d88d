package core

import (
	"errors"

	"gopper/protocol"
)

// Stepper command handlers for the host-queued move engine: config_stepper,
// queue_step, set_next_step_dir, reset_step_clock, stepper_get_position.
// Real-time mode's command surface lives in stepper_rt_commands.go.

// RegisterStepperCommands registers the host-queued stepper command set.
func RegisterStepperCommands() {
	RegisterCommand("config_stepper",
		"oid=%c step_pin=%u dir_pin=%u invert_step=%c min_stop_interval=%u",
		cmdConfigStepper)

	RegisterCommand("queue_step",
		"oid=%c interval=%u count=%hu add=%hi",
		cmdQueueStep)

	RegisterCommand("set_next_step_dir",
		"oid=%c dir=%c",
		cmdSetNextStepDir)

	RegisterCommand("reset_step_clock",
		"oid=%c clock=%u",
		cmdResetStepClock)

	RegisterCommand("stepper_get_position",
		"oid=%c",
		cmdStepperGetPosition)
	RegisterResponse("stepper_position", "oid=%c pos=%i")
}

// cmdConfigStepper handles config_stepper.
// Format: oid=%c step_pin=%u dir_pin=%u invert_step=%c min_stop_interval=%u
func cmdConfigStepper(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	stepPin, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	dirPin, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	invertStep, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	minStopInterval, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	stepper, err := NewStepper(uint8(oid), GPIOPin(stepPin), GPIOPin(dirPin), invertStep != 0, minStopInterval)
	if err != nil {
		return err
	}
	return GetRegistry().Add(stepper)
}

// cmdQueueStep handles queue_step.
// Format: oid=%c interval=%u count=%hu add=%hi
func cmdQueueStep(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	interval, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	add, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}

	stepper := GetStepper(uint8(oid))
	if stepper == nil {
		return errors.New("stepper not found")
	}
	RecordTiming(EvtQueueStep, uint8(oid), GetTime(), interval, uint32(count))
	return stepper.QueueStep(interval, uint16(count), int16(add))
}

// cmdSetNextStepDir handles set_next_step_dir.
// Format: oid=%c dir=%c
func cmdSetNextStepDir(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	dir, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	stepper := GetStepper(uint8(oid))
	if stepper == nil {
		return errors.New("stepper not found")
	}
	stepper.SetNextStepDir(uint8(dir))
	return nil
}

// cmdResetStepClock handles reset_step_clock.
// Format: oid=%c clock=%u
func cmdResetStepClock(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	clock, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	stepper := GetStepper(uint8(oid))
	if stepper == nil {
		return errors.New("stepper not found")
	}
	RecordTiming(EvtResetClock, uint8(oid), GetTime(), clock, 0)
	return stepper.ResetStepClock(clock)
}

// cmdStepperGetPosition handles stepper_get_position.
// Format: oid=%c
// Response: stepper_position oid=%c pos=%i
func cmdStepperGetPosition(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	stepper := GetStepper(uint8(oid))
	if stepper == nil {
		return errors.New("stepper not found")
	}

	pos := stepper.GetPosition()
	SendResponse("stepper_position", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, oid)
		protocol.EncodeVLQInt(output, pos)
	})
	return nil
}
