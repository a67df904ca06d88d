//go:build rp2040

package main

import "gopper/core"

// AFESensor reads the real-time controller's position/error feedback from an
// ADS1015-style analog front end over I2C: continuous conversion on
// channel 0, read and shifted to a 12-bit reading the same way the
// hardcoded ADC the real-time controller samples does ((hi<<8|lo)>>4).
type AFESensor struct {
	oid  uint8
	bus  core.I2CBusID
	addr core.I2CAddress
}

const (
	afeBus  core.I2CBusID   = 0
	afeAddr core.I2CAddress = 0x48

	afeRegConversion = 0x00
	afeRegConfig     = 0x01

	// Continuous conversion, channel 0 vs GND, +-4.096V FSR, 1600SPS,
	// comparator disabled.
	afeConfigHi = 0x42
	afeConfigLo = 0x63
)

// NewAFESensor is the core.SensorFactory wired into config_stepper_rt_mode.
func NewAFESensor(oid uint8) (core.TwoWireSensor, error) {
	return &AFESensor{oid: oid, bus: afeBus, addr: afeAddr}, nil
}

func (s *AFESensor) Init() error {
	if err := core.MustI2C().ConfigureBus(s.bus, 400000); err != nil {
		return err
	}
	return core.MustI2C().Write(s.bus, s.addr, []byte{afeRegConfig, afeConfigHi, afeConfigLo})
}

func (s *AFESensor) ReadRaw() (uint16, error) {
	data, err := core.MustI2C().Read(s.bus, s.addr, []byte{afeRegConversion}, 2)
	if err != nil {
		return 0, err
	}
	if len(data) < 2 {
		return 0, nil
	}
	return (uint16(data[0])<<8 | uint16(data[1])) >> 4, nil
}
