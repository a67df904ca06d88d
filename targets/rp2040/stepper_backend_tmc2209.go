//go:build rp2040

package main

import (
	"machine"

	"gopper/core"

	"tinygo.org/x/drivers/tmc2209"
)

// TMC2209Backend is a core.StepperBackend for axes driven by a TMC2209 smart
// driver IC. Microstep resolution is configured once over UART at Init time
// (motor current is not set here); step/dir pulsing is still bit-banged through the GPIODriver
// HAL exactly like GPIOStepperBackend, since the step timing itself comes
// from core's scheduler, not the driver chip.
type TMC2209Backend struct {
	driver     *tmc2209.TMC2209
	stepPin    core.GPIOPin
	dirPin     core.GPIOPin
	invertStep bool
	invertDir  bool
}

// NewTMC2209Backend builds a backend talking to a TMC2209 over the given
// UART at the given slave address.
func NewTMC2209Backend(uart machine.UART, address uint8) *TMC2209Backend {
	comm := tmc2209.NewUARTComm(uart, address)
	return &TMC2209Backend{driver: tmc2209.NewTMC2209(comm, address)}
}

func (b *TMC2209Backend) Init(stepPin, dirPin core.GPIOPin, invertStep, invertDir bool) error {
	b.stepPin = stepPin
	b.dirPin = dirPin
	b.invertStep = invertStep
	b.invertDir = invertDir

	if err := b.driver.Setup(); err != nil {
		return err
	}
	// 16 microsteps/step: a reasonable default balancing resolution against
	// the control loop's achievable step rate.
	tmc2209.SetMicrostepsPerStep(16)

	gpio := core.MustGPIO()
	if err := gpio.ConfigureOutput(stepPin); err != nil {
		return err
	}
	if err := gpio.ConfigureOutput(dirPin); err != nil {
		return err
	}
	return gpio.SetPin(stepPin, invertStep)
}

func (b *TMC2209Backend) Step() {
	gpio := core.MustGPIO()
	gpio.SetPin(b.stepPin, !b.invertStep)
	gpio.SetPin(b.stepPin, b.invertStep)
}

func (b *TMC2209Backend) SetDirection(dir bool) {
	core.MustGPIO().SetPin(b.dirPin, dir != b.invertDir)
}

func (b *TMC2209Backend) Stop() {
	gpio := core.MustGPIO()
	gpio.SetPin(b.dirPin, false)
	gpio.SetPin(b.stepPin, b.invertStep)
}

func (b *TMC2209Backend) GetName() string { return "tmc2209" }
