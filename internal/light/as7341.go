// Package light reads the AS7341 11-channel spectral sensor over I2C.
// It reports the eight narrow-band channels f1-f8 plus the clear and
// near-infrared channels as a label-to-count mapping, the shape the
// collector persists per measurement point.
package light

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	rmerrors "github.com/anstrom/radiomap/internal/errors"
	"github.com/anstrom/radiomap/internal/logging"
)

const (
	// DefaultAddr is the AS7341's fixed I2C address.
	DefaultAddr = 0x39

	sensorName = "as7341"

	// Registers.
	regEnable   = 0x80
	regATime    = 0x81
	regID       = 0x92
	regStatus2  = 0xA3
	regCH0DataL = 0x95
	regCFG1     = 0xAA
	regCFG6     = 0xAF
	regAStepL   = 0xCA
	regAStepH   = 0xCB

	// ENABLE bits.
	enablePON    = 0x01
	enableSPEN   = 0x02
	enableSMUXEN = 0x10

	// CFG6 SMUX command: write SMUX configuration from RAM.
	smuxCmdWrite = 0x10

	// STATUS2 spectral-data-valid bit.
	status2AValid = 0x40

	// Chip ID in the upper six bits of the ID register.
	chipID = 0x09

	// Default integration config: (ATIME+1) * (ASTEP+1) * 2.78 us.
	defaultATime = 100
	defaultAStep = 999
	defaultGain  = 8 // CFG1 code, 128x

	// Six 16-bit channels per SMUX bank.
	bankChannels = 6

	pollInterval = 5 * time.Millisecond
	waitTimeout  = 2 * time.Second
)

// SMUX pixel mappings from the AMS application note. The low bank routes
// f1-f4 plus clear and NIR to the six ADCs, the high bank f5-f8 plus
// clear and NIR.
var (
	smuxF1F4ClearNIR = [20]byte{
		0x30, 0x01, 0x00, 0x00, 0x00, 0x42, 0x00, 0x00, 0x50, 0x00,
		0x00, 0x00, 0x20, 0x04, 0x00, 0x30, 0x01, 0x50, 0x00, 0x06,
	}
	smuxF5F8ClearNIR = [20]byte{
		0x00, 0x00, 0x00, 0x40, 0x02, 0x00, 0x10, 0x03, 0x50, 0x10,
		0x03, 0x00, 0x00, 0x00, 0x24, 0x00, 0x00, 0x50, 0x00, 0x06,
	}
)

// Sensor is an AS7341 on an I2C bus.
type Sensor struct {
	dev   *i2c.Dev
	bus   i2c.BusCloser
	gain  byte
	atime byte
}

// New opens the named I2C bus (empty selects the first available),
// probes the chip and powers it up. Gain is a CFG1 code (0-10), atime
// the ATIME register value; non-positive values keep the defaults.
func New(busName string, addr uint16, gain, atime int) (*Sensor, error) {
	if _, err := host.Init(); err != nil {
		return nil, rmerrors.WrapSensorError(rmerrors.CodeSensorInit,
			"failed to initialize host drivers", sensorName, err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, rmerrors.WrapSensorError(rmerrors.CodeSensorInit,
			"failed to open i2c bus", sensorName, err)
	}

	if addr == 0 {
		addr = DefaultAddr
	}
	sensor := &Sensor{
		dev:   &i2c.Dev{Addr: addr, Bus: bus},
		bus:   bus,
		gain:  defaultGain,
		atime: defaultATime,
	}
	if gain > 0 {
		sensor.gain = byte(gain)
	}
	if atime > 0 {
		sensor.atime = byte(atime)
	}

	if err := sensor.setup(); err != nil {
		_ = bus.Close()
		return nil, err
	}

	logging.InfoSensor("light sensor initialized", sensorName,
		"bus", bus.String(), "addr", fmt.Sprintf("%#x", addr))
	return sensor, nil
}

// newWithDev wires a sensor to an existing device, for tests.
func newWithDev(dev *i2c.Dev) *Sensor {
	return &Sensor{dev: dev, gain: defaultGain, atime: defaultATime}
}

func (s *Sensor) setup() error {
	id, err := s.readReg(regID)
	if err != nil {
		return rmerrors.WrapSensorError(rmerrors.CodeSensorInit,
			"failed to probe chip id", sensorName, err)
	}
	if id>>2 != chipID {
		return rmerrors.NewSensorError(rmerrors.CodeSensorInit,
			fmt.Sprintf("unexpected chip id %#x", id), sensorName)
	}

	if err := s.writeReg(regEnable, enablePON); err != nil {
		return rmerrors.WrapSensorError(rmerrors.CodeSensorInit,
			"failed to power on", sensorName, err)
	}
	if err := s.writeReg(regATime, s.atime); err != nil {
		return rmerrors.WrapSensorError(rmerrors.CodeSensorInit,
			"failed to set integration time", sensorName, err)
	}
	if err := s.writeReg(regAStepL, defaultAStep&0xFF); err != nil {
		return rmerrors.WrapSensorError(rmerrors.CodeSensorInit,
			"failed to set integration step", sensorName, err)
	}
	if err := s.writeReg(regAStepH, defaultAStep>>8); err != nil {
		return rmerrors.WrapSensorError(rmerrors.CodeSensorInit,
			"failed to set integration step", sensorName, err)
	}
	if err := s.writeReg(regCFG1, s.gain); err != nil {
		return rmerrors.WrapSensorError(rmerrors.CodeSensorInit,
			"failed to set gain", sensorName, err)
	}
	return nil
}

// Channels reads all spectral channels. The low SMUX bank yields f1-f4,
// the high bank f5-f8 plus the clear and NIR counts.
func (s *Sensor) Channels(ctx context.Context) (map[string]int, error) {
	low, err := s.readBank(ctx, smuxF1F4ClearNIR)
	if err != nil {
		return nil, err
	}
	high, err := s.readBank(ctx, smuxF5F8ClearNIR)
	if err != nil {
		return nil, err
	}

	return map[string]int{
		"f1":    low[0],
		"f2":    low[1],
		"f3":    low[2],
		"f4":    low[3],
		"f5":    high[0],
		"f6":    high[1],
		"f7":    high[2],
		"f8":    high[3],
		"clear": high[4],
		"nir":   high[5],
	}, nil
}

// readBank reconfigures the SMUX, runs one integration and reads the
// six ADC channels.
func (s *Sensor) readBank(ctx context.Context, smux [20]byte) ([bankChannels]int, error) {
	var channels [bankChannels]int

	// Spectral engine must be idle while the SMUX is rewritten.
	if err := s.writeReg(regEnable, enablePON); err != nil {
		return channels, rmerrors.WrapSensorError(rmerrors.CodeSensorRead,
			"failed to pause spectral engine", sensorName, err)
	}

	if err := s.writeReg(regCFG6, smuxCmdWrite); err != nil {
		return channels, rmerrors.WrapSensorError(rmerrors.CodeSensorRead,
			"failed to select smux write", sensorName, err)
	}
	if err := s.dev.Tx(append([]byte{0x00}, smux[:]...), nil); err != nil {
		return channels, rmerrors.WrapSensorError(rmerrors.CodeSensorRead,
			"failed to write smux configuration", sensorName, err)
	}
	if err := s.writeReg(regEnable, enablePON|enableSMUXEN); err != nil {
		return channels, rmerrors.WrapSensorError(rmerrors.CodeSensorRead,
			"failed to start smux transfer", sensorName, err)
	}
	if err := s.waitClear(ctx, regEnable, enableSMUXEN); err != nil {
		return channels, err
	}

	if err := s.writeReg(regEnable, enablePON|enableSPEN); err != nil {
		return channels, rmerrors.WrapSensorError(rmerrors.CodeSensorRead,
			"failed to start integration", sensorName, err)
	}
	if err := s.waitSet(ctx, regStatus2, status2AValid); err != nil {
		return channels, err
	}

	buf := make([]byte, bankChannels*2)
	if err := s.dev.Tx([]byte{regCH0DataL}, buf); err != nil {
		return channels, rmerrors.WrapSensorError(rmerrors.CodeSensorRead,
			"failed to read channel data", sensorName, err)
	}
	for i := 0; i < bankChannels; i++ {
		channels[i] = int(buf[2*i]) | int(buf[2*i+1])<<8
	}
	return channels, nil
}

// waitClear polls a register until the mask bits drop.
func (s *Sensor) waitClear(ctx context.Context, reg, mask byte) error {
	return s.poll(ctx, reg, func(v byte) bool { return v&mask == 0 })
}

// waitSet polls a register until the mask bits rise.
func (s *Sensor) waitSet(ctx context.Context, reg, mask byte) error {
	return s.poll(ctx, reg, func(v byte) bool { return v&mask != 0 })
}

func (s *Sensor) poll(ctx context.Context, reg byte, done func(byte) bool) error {
	deadline := time.Now().Add(waitTimeout)
	for {
		v, err := s.readReg(reg)
		if err != nil {
			return rmerrors.WrapSensorError(rmerrors.CodeSensorRead,
				"failed to poll status register", sensorName, err)
		}
		if done(v) {
			return nil
		}
		if time.Now().After(deadline) {
			return rmerrors.NewSensorError(rmerrors.CodeTimeout,
				fmt.Sprintf("register %#x never settled", reg), sensorName)
		}
		select {
		case <-ctx.Done():
			return rmerrors.WrapSensorError(rmerrors.CodeCanceled,
				"sensor read canceled", sensorName, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

func (s *Sensor) readReg(reg byte) (byte, error) {
	buf := make([]byte, 1)
	if err := s.dev.Tx([]byte{reg}, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (s *Sensor) writeReg(reg, value byte) error {
	return s.dev.Tx([]byte{reg, value}, nil)
}

// Close powers the sensor down and releases the bus.
func (s *Sensor) Close() error {
	if err := s.writeReg(regEnable, 0); err != nil {
		logging.ErrorSensor("failed to power down sensor", sensorName, err)
	}
	if s.bus != nil {
		return s.bus.Close()
	}
	return nil
}
