package light

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// fakeBus simulates the AS7341's register file on an i2c.Bus. SMUX
// transfers complete instantly and spectral data is always valid.
type fakeBus struct {
	regs      map[byte]byte
	channels  [][]byte // successive CH0..CH5 data blocks
	readIndex int
	smuxLoads int
}

func newFakeBus(channels ...[]byte) *fakeBus {
	return &fakeBus{
		regs: map[byte]byte{
			regID:      chipID << 2,
			regStatus2: status2AValid,
		},
		channels: channels,
	}
}

func (b *fakeBus) String() string               { return "fake" }
func (b *fakeBus) SetSpeed(physic.Frequency) error { return nil }

func (b *fakeBus) Tx(_ uint16, w, r []byte) error {
	if len(w) == 0 {
		return nil
	}
	reg := w[0]

	if len(r) > 0 {
		if reg == regCH0DataL && len(r) == bankChannels*2 {
			block := b.channels[b.readIndex%len(b.channels)]
			b.readIndex++
			copy(r, block)
			return nil
		}
		for i := range r {
			r[i] = b.regs[reg+byte(i)]
		}
		return nil
	}

	if reg == 0x00 && len(w) == 21 {
		b.smuxLoads++
		return nil
	}
	for i, v := range w[1:] {
		value := v
		// SMUX transfers finish immediately in the fake.
		if reg+byte(i) == regEnable {
			value &^= enableSMUXEN
		}
		b.regs[reg+byte(i)] = value
	}
	return nil
}

func channelBlock(values ...int) []byte {
	block := make([]byte, len(values)*2)
	for i, v := range values {
		block[2*i] = byte(v & 0xFF)
		block[2*i+1] = byte(v >> 8)
	}
	return block
}

func TestSensorChannels(t *testing.T) {
	bus := newFakeBus(
		channelBlock(1302, 10469, 9157, 10811, 48000, 3000),
		channelBlock(15633, 17140, 12434, 7685, 48996, 3009),
	)
	sensor := newWithDev(&i2c.Dev{Addr: DefaultAddr, Bus: bus})
	require.NoError(t, sensor.setup())

	readings, err := sensor.Channels(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"f1": 1302, "f2": 10469, "f3": 9157, "f4": 10811,
		"f5": 15633, "f6": 17140, "f7": 12434, "f8": 7685,
		"clear": 48996, "nir": 3009,
	}, readings)
	assert.Equal(t, 2, bus.smuxLoads)
}

func TestSensorSetupRejectsWrongChip(t *testing.T) {
	bus := newFakeBus()
	bus.regs[regID] = 0xFF

	sensor := newWithDev(&i2c.Dev{Addr: DefaultAddr, Bus: bus})
	err := sensor.setup()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected chip id")
}

func TestSensorChannelsCanceled(t *testing.T) {
	bus := newFakeBus(channelBlock(0, 0, 0, 0, 0, 0))
	// Spectral data never becomes valid, so the poll loop must observe
	// the canceled context instead of spinning until its own timeout.
	bus.regs[regStatus2] = 0

	sensor := newWithDev(&i2c.Dev{Addr: DefaultAddr, Bus: bus})
	require.NoError(t, sensor.setup())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sensor.Channels(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canceled")
}
