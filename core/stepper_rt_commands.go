package core

import (
	"errors"

	"gopper/protocol"
)

// Real-time mode's command surface: config_stepper_rt_mode, set_realtime_mode,
// set_host_mode, and the stepper_rt_log telemetry response. Ported from
// command_config_stepper_rt_mode / command_set_realtime_mode /
// command_set_host_mode.

// RegisterStepperRtCommands registers the real-time control command set.
func RegisterStepperRtCommands() {
	RegisterCommand("config_stepper_rt_mode",
		"oid=%c control_freq=%hu input_cycle=%hu input_factor=%i max_freq=%u max_acc=%u",
		cmdConfigStepperRtMode)

	RegisterCommand("set_realtime_mode",
		"oid=%c clock=%u min_pos=%i max_pos=%i",
		cmdSetRealtimeMode)

	RegisterCommand("set_host_mode",
		"oid=%c clock=%u",
		cmdSetHostMode)

	RegisterResponse("stepper_rt_log", "oid=%c pos=%i error=%i")
}

// cmdConfigStepperRtMode handles config_stepper_rt_mode.
// Format: oid=%c control_freq=%hu input_cycle=%hu input_factor=%i max_freq=%u max_acc=%u
func cmdConfigStepperRtMode(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	controlFreq, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	inputCycle, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	inputFactor, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	maxFreq, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	maxAcc, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	stepper := GetStepper(uint8(oid))
	if stepper == nil {
		return errors.New("stepper not found")
	}
	if controlFreq == 0 || inputCycle == 0 || maxAcc == 0 {
		return errors.New("config_stepper_rt_mode: zero frequency/acceleration")
	}

	rt := &stepper.rt
	rt.controlFreq = uint16(controlFreq)
	rt.inputCycle = uint16(inputCycle)
	rt.inputFactor = inputFactor
	rt.maxFreq = maxFreq
	rt.maxAcc = maxAcc
	rt.controlPeriod = clockFreq / controlFreq
	rt.maxDeltaFreq = int32(maxAcc / controlFreq)
	rt.minFreq = uint32(minU32(100, uint32(rt.maxDeltaFreq)))
	rt.slowdownPending = false

	if stepper.rt.sensor == nil && sensorFactory != nil {
		sensor, err := sensorFactory(uint8(oid))
		if err != nil {
			return err
		}
		stepper.rt.sensor = sensor
	}
	if stepper.rt.sensor != nil {
		if err := stepper.rt.sensor.Init(); err != nil {
			return err
		}
	}
	return nil
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// cmdSetRealtimeMode handles set_realtime_mode.
// Format: oid=%c clock=%u min_pos=%i max_pos=%i
func cmdSetRealtimeMode(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	clock, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	minPos, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	maxPos, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}

	stepper := GetStepper(uint8(oid))
	if stepper == nil {
		return errors.New("stepper not found")
	}
	return stepper.SetRealtimeMode(clock, minPos, maxPos)
}

// cmdSetHostMode handles set_host_mode.
// Format: oid=%c clock=%u
func cmdSetHostMode(data *[]byte) error {
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
	stepper.SetHostMode(clock)
	return nil
}
