package nvs

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// DefaultEEPROMAddr is the 7-bit address of a 24C02 with A0..A2 grounded.
const DefaultEEPROMAddr = 0x50

// writeCycle is the 24Cxx internal write time.
const writeCycle = 5 * time.Millisecond

// EEPROM is a Device on a 24Cxx I2C EEPROM with single-byte word addresses.
type EEPROM struct {
	bus i2c.BusCloser
	dev *i2c.Dev
}

// OpenEEPROM opens the EEPROM at addr on the named I2C bus ("" = first bus).
func OpenEEPROM(bus string, addr uint16) (*EEPROM, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", bus, err)
	}
	return &EEPROM{
		bus: b,
		dev: &i2c.Dev{Addr: addr, Bus: b},
	}, nil
}

// Load implements Device.
func (e *EEPROM) Load(off int) (byte, error) {
	var buf [1]byte
	if err := e.dev.Tx([]byte{byte(off)}, buf[:]); err != nil {
		return 0, fmt.Errorf("eeprom read 0x%02x: %w", off, err)
	}
	return buf[0], nil
}

// Store implements Device. It blocks for the chip's write cycle.
func (e *EEPROM) Store(off int, b byte) error {
	if err := e.dev.Tx([]byte{byte(off), b}, nil); err != nil {
		return fmt.Errorf("eeprom write 0x%02x: %w", off, err)
	}
	time.Sleep(writeCycle)
	return nil
}

// Close implements Device.
func (e *EEPROM) Close() error {
	return e.bus.Close()
}
