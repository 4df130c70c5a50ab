package ble

import (
	"context"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAddr satisfies ble.Addr.
type fakeAddr string

func (a fakeAddr) String() string { return string(a) }

// fakeAdv satisfies ble.Advertisement with just enough for the scanner.
type fakeAdv struct {
	addr fakeAddr
	rssi int
}

func (a *fakeAdv) LocalName() string              { return "" }
func (a *fakeAdv) ManufacturerData() []byte       { return nil }
func (a *fakeAdv) ServiceData() []ble.ServiceData { return nil }
func (a *fakeAdv) Services() []ble.UUID           { return nil }
func (a *fakeAdv) OverflowService() []ble.UUID    { return nil }
func (a *fakeAdv) TxPowerLevel() int              { return 0 }
func (a *fakeAdv) Connectable() bool              { return true }
func (a *fakeAdv) SolicitedService() []ble.UUID   { return nil }
func (a *fakeAdv) RSSI() int                      { return a.rssi }
func (a *fakeAdv) Addr() ble.Addr                 { return a.addr }

func TestScannerScan(t *testing.T) {
	t.Run("collects latest RSSI per address", func(t *testing.T) {
		scanner := NewScanner(time.Second, 1)
		scanner.scan = func(_ context.Context, _ bool, h ble.AdvHandler, _ ble.AdvFilter) error {
			h(&fakeAdv{addr: "de:ad:be:ef:00:01", rssi: -60})
			h(&fakeAdv{addr: "de:ad:be:ef:00:02", rssi: -80})
			h(&fakeAdv{addr: "de:ad:be:ef:00:01", rssi: -55})
			return context.DeadlineExceeded
		}

		readings, err := scanner.Scan(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]int{
			"de:ad:be:ef:00:01": -55,
			"de:ad:be:ef:00:02": -80,
		}, readings)
	})

	t.Run("deadline is a normal scan end", func(t *testing.T) {
		scanner := NewScanner(time.Second, 1)
		scanner.scan = func(_ context.Context, _ bool, _ ble.AdvHandler, _ ble.AdvFilter) error {
			return context.DeadlineExceeded
		}

		readings, err := scanner.Scan(context.Background())
		require.NoError(t, err)
		assert.Empty(t, readings)
	})

	t.Run("retries transient stack errors", func(t *testing.T) {
		attempts := 0
		scanner := NewScanner(time.Second, 3)
		scanner.scan = func(_ context.Context, _ bool, h ble.AdvHandler, _ ble.AdvFilter) error {
			attempts++
			if attempts < 3 {
				return errors.New("hci device busy")
			}
			h(&fakeAdv{addr: "de:ad:be:ef:00:01", rssi: -50})
			return nil
		}

		readings, err := scanner.Scan(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
		assert.Len(t, readings, 1)
	})

	t.Run("exhausted retries return wrapped error", func(t *testing.T) {
		scanner := NewScanner(time.Second, 2)
		scanner.scan = func(_ context.Context, _ bool, _ ble.AdvHandler, _ ble.AdvFilter) error {
			return errors.New("hci device down")
		}

		readings, err := scanner.Scan(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "all retries to scan failed")
		assert.Empty(t, readings)
	})

	t.Run("defaults applied for non-positive settings", func(t *testing.T) {
		scanner := NewScanner(0, 0)
		assert.Equal(t, DefaultScanDuration, scanner.ScanDuration)
		assert.Equal(t, DefaultRetries, scanner.Retries)
	})
}
