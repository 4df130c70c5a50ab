// Package ble collects Bluetooth Low Energy proximity readings for
// radiomap. It listens for advertisements for a bounded duration and
// reports the RSSI of each device's most recent advertisement.
package ble

import (
	"context"
	"time"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"

	"github.com/anstrom/radiomap/internal/logging"
)

const (
	// DefaultScanDuration bounds one advertisement listening window.
	DefaultScanDuration = 5 * time.Second

	// DefaultRetries bounds attempts when the BLE stack errors.
	DefaultRetries = 3
)

// scanFn matches ble.Scan and exists as a seam for tests.
type scanFn func(ctx context.Context, allowDup bool, h ble.AdvHandler, f ble.AdvFilter) error

// Scanner performs bounded BLE advertisement scans. The HCI device must
// be opened with OpenDevice before the first scan.
type Scanner struct {
	ScanDuration time.Duration
	Retries      int

	scan scanFn
}

// NewScanner returns a scanner with the given listening window and
// retry budget; non-positive values fall back to defaults.
func NewScanner(duration time.Duration, retries int) *Scanner {
	if duration <= 0 {
		duration = DefaultScanDuration
	}
	if retries <= 0 {
		retries = DefaultRetries
	}
	return &Scanner{
		ScanDuration: duration,
		Retries:      retries,
		scan:         ble.Scan,
	}
}

// Scan listens for advertisements for the configured duration and
// returns a map from device address to the RSSI of its most recent
// advertisement. Transient BLE stack errors are retried up to the
// configured budget.
func (s *Scanner) Scan(ctx context.Context) (map[string]int, error) {
	var lastErr error
	for i := 0; i < s.Retries; i++ {
		readings, err := s.scanOnce(ctx)
		if err == nil {
			return readings, nil
		}
		lastErr = err
		if i < s.Retries-1 {
			logging.ErrorSensor("retrying failed BLE scan", "ble", err,
				"attempt", i+1)
		}
	}
	return map[string]int{}, errors.Wrap(lastErr, "all retries to scan failed")
}

func (s *Scanner) scanOnce(ctx context.Context) (map[string]int, error) {
	readings := make(map[string]int)

	scanCtx, cancel := context.WithTimeout(ctx, s.ScanDuration)
	defer cancel()

	handler := func(a ble.Advertisement) {
		// The RSSI rides on the advertisement; with duplicates allowed
		// the latest packet per address wins.
		readings[a.Addr().String()] = a.RSSI()
	}

	err := s.scan(scanCtx, true, handler, nil)
	switch errors.Cause(err) {
	case nil, context.DeadlineExceeded:
		return readings, nil
	case context.Canceled:
		return nil, errors.Wrap(err, "ble scan canceled")
	default:
		return nil, errors.Wrap(err, "failed to scan for ble devices")
	}
}
