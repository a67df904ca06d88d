package core

// GPIOStepperBackend is the default StepperBackend: direct bit-banging of a
// step/dir GPIO pair through the GPIODriver HAL. It is what config_stepper
// wires up unless a target overrides it with a smart driver IC backend (see
// targets/rp2040/stepper_backend_tmc2209.go).
type GPIOStepperBackend struct {
	stepPin    GPIOPin
	dirPin     GPIOPin
	invertStep bool
	invertDir  bool
}

func (b *GPIOStepperBackend) Init(stepPin, dirPin GPIOPin, invertStep, invertDir bool) error {
	b.stepPin = stepPin
	b.dirPin = dirPin
	b.invertStep = invertStep
	b.invertDir = invertDir

	gpio := MustGPIO()
	if err := gpio.ConfigureOutput(stepPin); err != nil {
		return err
	}
	if err := gpio.ConfigureOutput(dirPin); err != nil {
		return err
	}
	return gpio.SetPin(stepPin, invertStep)
}

// Step emits one complete step pulse. Pulse-width timing for the no-delay
// configuration is short enough to fold into a single call; the delay-mode
// configuration schedules the rising and falling edges as separate timer
// sub-events instead of calling Step twice (see Stepper.stepperEventDelayed).
func (b *GPIOStepperBackend) Step() {
	gpio := MustGPIO()
	gpio.SetPin(b.stepPin, !b.invertStep)
	gpio.SetPin(b.stepPin, b.invertStep)
}

func (b *GPIOStepperBackend) SetDirection(dir bool) {
	MustGPIO().SetPin(b.dirPin, dir != b.invertDir)
}

func (b *GPIOStepperBackend) Stop() {
	gpio := MustGPIO()
	gpio.SetPin(b.dirPin, false)
	gpio.SetPin(b.stepPin, b.invertStep)
}

func (b *GPIOStepperBackend) GetName() string { return "gpio" }
