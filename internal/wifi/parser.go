package wifi

import (
	"regexp"
	"strconv"
	"time"

	rmerrors "github.com/anstrom/radiomap/internal/errors"
	"github.com/anstrom/radiomap/internal/logging"
)

// Sentinel signal level used when the tool reports a signal label the
// parser cannot read, matching the weakest value the dBm scale produces
// in practice.
const defaultSignalLevel = -100

// Security identifies the encryption mode advertised by a network.
type Security string

const (
	SecurityOpen Security = "Open"
	SecurityWEP  Security = "WEP"
	SecurityWPA  Security = "WPA"
	SecurityWPA2 Security = "WPA2"
)

// Network is one observed access point at one scan instant.
type Network struct {
	// BSSID is the access point's hardware address in colon-separated
	// hex form. It is the unique key within one scan's results.
	BSSID string `json:"bssid"`

	// SignalDBM is the received signal level; more negative is weaker.
	SignalDBM int `json:"signal_dbm"`

	// ESSID is the advertised network name, nil when not advertised.
	// An advertised empty name is distinct from an absent one.
	ESSID *string `json:"essid,omitempty"`

	// Security is the encryption mode derived from the scan record.
	Security Security `json:"security"`

	// Frequency is the reported band, e.g. "2.462 GHz", nil when the
	// tool does not report one.
	Frequency *string `json:"frequency,omitempty"`

	// LastSeen is when the record was captured.
	LastSeen time.Time `json:"last_seen"`
}

// Name returns the ESSID or an empty string when none was advertised.
func (n Network) Name() string {
	if n.ESSID == nil {
		return ""
	}
	return *n.ESSID
}

var (
	// Each network's record block starts with a "Cell N - " marker;
	// anything before the first marker is the tool's banner.
	cellMarkerRe = regexp.MustCompile(`Cell \d+ - `)

	addressRe   = regexp.MustCompile(`Address: ([0-9A-Fa-f:]{17})`)
	signalRe    = regexp.MustCompile(`Signal level=(-?\d+)`)
	essidRe     = regexp.MustCompile(`ESSID:"([^"]*)"`)
	encKeyOnRe  = regexp.MustCompile(`Encryption key:on`)
	wpa2Re      = regexp.MustCompile(`IE:.*WPA2`)
	wpaRe       = regexp.MustCompile(`IE:.*WPA`)
	frequencyRe = regexp.MustCompile(`Frequency:([\d.]+) GHz`)
)

// ParseScanOutput turns one raw scan tool blob into a BSSID-keyed network
// map. Malformed cells are logged and skipped without aborting the rest;
// when two cells share a BSSID the later one wins. Aside from the capture
// timestamp the result is a pure function of the input text.
func ParseScanOutput(raw string, now time.Time) map[string]Network {
	networks := make(map[string]Network)

	cells := cellMarkerRe.Split(raw, -1)
	if len(cells) > 0 {
		cells = cells[1:]
	}

	for _, cell := range cells {
		network, err := parseCell(cell, now)
		if err != nil {
			logging.Warn("failed to parse scan cell", "error", err)
			continue
		}
		networks[network.BSSID] = *network
	}

	return networks
}

// parseCell extracts one network record from a cell block. Every field
// except the address is optional; a cell without a parsable address is
// rejected.
func parseCell(cell string, now time.Time) (*Network, error) {
	addr := addressRe.FindStringSubmatch(cell)
	if addr == nil {
		return nil, rmerrors.NewScanError(rmerrors.CodeParseFailed,
			"no access point address in cell")
	}

	network := &Network{
		BSSID:     addr[1],
		SignalDBM: defaultSignalLevel,
		Security:  SecurityOpen,
		LastSeen:  now,
	}

	if m := signalRe.FindStringSubmatch(cell); m != nil {
		if level, err := strconv.Atoi(m[1]); err == nil {
			network.SignalDBM = level
		}
	}

	if m := essidRe.FindStringSubmatch(cell); m != nil {
		essid := m[1]
		network.ESSID = &essid
	}

	// WPA2 information elements also contain "WPA", so the order of
	// these checks matters.
	if encKeyOnRe.MatchString(cell) {
		switch {
		case wpa2Re.MatchString(cell):
			network.Security = SecurityWPA2
		case wpaRe.MatchString(cell):
			network.Security = SecurityWPA
		default:
			network.Security = SecurityWEP
		}
	}

	if m := frequencyRe.FindStringSubmatch(cell); m != nil {
		freq := m[1] + " GHz"
		network.Frequency = &freq
	}

	return network, nil
}
