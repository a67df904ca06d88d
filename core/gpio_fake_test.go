package core

// fakeGPIODriver is a host-testable GPIODriver: it just remembers pin state
// and counts rising edges on each pin, standing in for real hardware.
type fakeGPIODriver struct {
	state     map[GPIOPin]bool
	riseCount map[GPIOPin]int
}

func newFakeGPIODriver() *fakeGPIODriver {
	return &fakeGPIODriver{
		state:     make(map[GPIOPin]bool),
		riseCount: make(map[GPIOPin]int),
	}
}

func (d *fakeGPIODriver) ConfigureOutput(pin GPIOPin) error        { return nil }
func (d *fakeGPIODriver) ConfigureInputPullUp(pin GPIOPin) error   { return nil }
func (d *fakeGPIODriver) ConfigureInputPullDown(pin GPIOPin) error { return nil }

func (d *fakeGPIODriver) SetPin(pin GPIOPin, value bool) error {
	if value && !d.state[pin] {
		d.riseCount[pin]++
	}
	d.state[pin] = value
	return nil
}

func (d *fakeGPIODriver) GetPin(pin GPIOPin) (bool, error) { return d.state[pin], nil }
func (d *fakeGPIODriver) ReadPin(pin GPIOPin) bool         { return d.state[pin] }

// withFakeGPIO installs a fresh fakeGPIODriver for the duration of a test.
func withFakeGPIO() *fakeGPIODriver {
	d := newFakeGPIODriver()
	SetGPIODriver(d)
	return d
}
