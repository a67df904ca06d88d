package core

// TwoWireSensor abstracts the I2C position/error sensor the real-time
// controller samples every control period (Klipper's stepper.c hardcodes an
// ADS1015-style ADC at address 0x48; here that register map lives behind
// this interface in the target package, so core stays host-testable).
type TwoWireSensor interface {
	// Init configures the sensor (bus setup, device config write).
	Init() error

	// ReadRaw returns the sensor's raw register reading, already shifted
	// to a 12-bit range the way the ADS1015 read path does
	// ((hi<<8|lo)>>4).
	ReadRaw() (uint16, error)
}

// sensorFactory builds a TwoWireSensor for a given stepper oid. Set by
// target-specific code; config_stepper_rt_mode calls it to attach a sensor
// unless one was already assigned via Stepper.SetSensor (used by tests).
var sensorFactory func(oid uint8) (TwoWireSensor, error)

// SetSensorFactory registers the platform-specific sensor constructor.
func SetSensorFactory(f func(oid uint8) (TwoWireSensor, error)) {
	sensorFactory = f
}

// SetSensor attaches a sensor to a stepper directly, bypassing the factory.
// Used by host tests to inject FakeTwoWireSensor.
func (s *Stepper) SetSensor(sensor TwoWireSensor) {
	s.rt.sensor = sensor
}

// FakeTwoWireSensor is a host-testable TwoWireSensor whose reading is a
// plain field the test sets directly, standing in for the ADS1015-style
// sensor a real target reads over I2C.
type FakeTwoWireSensor struct {
	Raw uint16
}

func (f *FakeTwoWireSensor) Init() error { return nil }

func (f *FakeTwoWireSensor) ReadRaw() (uint16, error) { return f.Raw, nil }
