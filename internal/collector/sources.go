package collector

import (
	"context"

	"github.com/anstrom/radiomap/internal/ble"
	"github.com/anstrom/radiomap/internal/light"
	"github.com/anstrom/radiomap/internal/wifi"
)

// Source is one sensor modality producing identifier-to-reading pairs
// for a collection cycle. Readings land in the CSV file named after the
// source.
type Source interface {
	// Name identifies the modality ("wifi", "ble", "light").
	Name() string

	// Read returns the modality's current readings. An error marks the
	// whole modality failed for this cycle; an empty map is a valid
	// (if unfortunate) result.
	Read(ctx context.Context) (map[string]int, error)
}

// WiFiSource reads BSSID signal levels from a continuous scanner's
// cache. It never errors: an empty cache is an empty reading.
type WiFiSource struct {
	Scanner   *wifi.Scanner
	MinSignal int
}

// Name implements Source.
func (s *WiFiSource) Name() string { return "wifi" }

// Read implements Source.
func (s *WiFiSource) Read(_ context.Context) (map[string]int, error) {
	networks := s.Scanner.Networks(s.MinSignal)
	readings := make(map[string]int, len(networks))
	for bssid, network := range networks {
		readings[bssid] = network.SignalDBM
	}
	return readings, nil
}

// BLESource performs a bounded advertisement scan per cycle.
type BLESource struct {
	Scanner *ble.Scanner
}

// Name implements Source.
func (s *BLESource) Name() string { return "ble" }

// Read implements Source.
func (s *BLESource) Read(ctx context.Context) (map[string]int, error) {
	return s.Scanner.Scan(ctx)
}

// LightSource reads the spectral sensor's channels per cycle.
type LightSource struct {
	Sensor *light.Sensor
}

// Name implements Source.
func (s *LightSource) Name() string { return "light" }

// Read implements Source.
func (s *LightSource) Read(ctx context.Context) (map[string]int, error) {
	return s.Sensor.Channels(ctx)
}
