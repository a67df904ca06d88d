package core

// Stepper motor control. Ported from Klipper's stepper.c (see
// original_source/src/stepper.c) with the host-queued move engine and the
// real-time sensor-driven controller sharing one struct and one GPIO pair,
// switched between by ModeController.

import "errors"

// Mode selects which engine currently drives a stepper's step/dir pins.
type Mode uint8

const (
	ModeHost Mode = iota
	ModeRealTime
)

// Stepper status flags (mirrors Klipper's SF_* bitfield).
const (
	sfLastDir     = 1 << 0
	sfNextDir     = 1 << 1
	sfInvertStep  = 1 << 2
	sfHaveAdd     = 1 << 3
	sfLastReset   = 1 << 4
	sfNoNextCheck = 1 << 5
	sfNeedReset   = 1 << 6
)

// positionBias centers the signed position word mid-range so its top bit can
// double as a direction-reversal flag. Matches Klipper's POSITION_BIAS.
const positionBias uint32 = 1 << 30

// rtState is the real-time control loop's substate (Component C/D), embedded
// by value in Stepper so Host and RealTime mode share one struct, one
// toggle, and one pair of GPIO pins.
type rtState struct {
	controlTimer Timer
	stepTimer    Timer

	sensor TwoWireSensor

	slowdown   bool
	dirSave    uint8
	currentDir uint8

	controlFreq   uint16
	inputCycle    uint16
	controlPeriod uint32
	inputFactor   int32
	minFreq       uint32
	maxFreq       uint32
	maxAcc        uint32

	maxDeltaFreq  int32
	freqLimiter   int32
	currentSpeed  int32
	targetSpeed   int32
	currentPeriod uint32

	count  int32
	minPos int32
	maxPos int32

	cycleCount uint16
	lastStep   uint32

	slowdownPending bool
	slowdownClock   uint32
}

// Stepper represents a single stepper motor axis, configured by
// config_stepper and driven either by the host-queued move engine
// (StepEngine) or the real-time sensor-driven controller (RtController),
// never both at once.
type Stepper struct {
	oid uint8

	stepPin GPIOPin
	dirPin  GPIOPin

	backend StepperBackend

	minStopInterval uint32
	stepDelayTicks  uint32 // 0 = no-delay config; >0 = delay-mode config

	flags uint8

	// host-mode move engine state
	timer        Timer
	interval     uint32
	add          int16
	count        uint32 // steps remaining; doubled in delay-mode
	nextStepTime uint32

	position   uint32
	totalSteps uint32
	physDir    bool // tracks the dir pin's actual level; loadNext toggles it

	first *Move
	plast **Move // address of the "next" field of the tail node, or of first

	mode            Mode
	togglePending   bool
	toggleModeTimer Timer

	rt rtState
}

// NewStepper allocates and configures a stepper for oid, exactly as
// command_config_stepper does: step/dir pins, invert-step polarity, the
// minimum stop interval safety floor, and the initial biased position.
func NewStepper(oid uint8, stepPin, dirPin GPIOPin, invertStep bool, minStopInterval uint32) (*Stepper, error) {
	s := &Stepper{
		oid:             oid,
		stepPin:         stepPin,
		dirPin:          dirPin,
		minStopInterval: minStopInterval,
		position:        positionBias,
		mode:            ModeHost,
	}
	if invertStep {
		s.flags |= sfInvertStep
	}
	s.plast = &s.first
	s.timer.Handler = s.stepperEvent

	backend, err := newDefaultBackend(stepPin, dirPin, invertStep, false)
	if err != nil {
		return nil, err
	}
	s.backend = backend
	return s, nil
}

// OID returns the stepper's object id.
func (s *Stepper) OID() uint8 { return s.oid }

// Mode returns the stepper's current drive mode.
func (s *Stepper) Mode() Mode { return s.mode }

// SetStepDelay configures the per-step pulse delay, in timer ticks. Zero
// (the default) selects the no-delay stepping path; a nonzero value selects
// the delay-mode path, which schedules a separate unstep sub-event and
// doubles the internal step counter, exactly like Klipper's
// CONFIG_STEP_DELAY > 0 build variant.
func (s *Stepper) SetStepDelay(ticks uint32) {
	s.stepDelayTicks = ticks
}

// SetBackend overrides the stepper's pulse-generation backend (e.g. with a
// smart UART/SPI driver IC instead of direct GPIO bit-banging).
func (s *Stepper) SetBackend(b StepperBackend) {
	s.backend = b
}

func newDefaultBackend(stepPin, dirPin GPIOPin, invertStep, invertDir bool) (StepperBackend, error) {
	b := &GPIOStepperBackend{}
	if err := b.Init(stepPin, dirPin, invertStep, invertDir); err != nil {
		return nil, err
	}
	return b, nil
}

// errInvalidOID is returned by registry lookups for an unconfigured oid.
var errInvalidOID = errors.New("invalid stepper oid")
