package wifi

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anstrom/radiomap/internal/logging"
	"github.com/anstrom/radiomap/internal/metrics"
)

const (
	// DefaultScanInterval is the pause between continuous scan cycles.
	DefaultScanInterval = 10 * time.Second

	// DefaultMinSignal admits every cached record when filtering.
	DefaultMinSignal = -100

	// DefaultStrongestCount limits StrongestNetworks when the caller
	// passes a non-positive count.
	DefaultStrongestCount = 5
)

// scanFunc performs one scan cycle and returns the parsed networks.
// Injectable for tests.
type scanFunc func(ctx context.Context) map[string]Network

// Scanner owns the continuous scan lifecycle and the shared network
// cache. The cache is keyed by BSSID and holds the most recent
// observation per network; entries are never evicted, so the key set
// grows monotonically for the scanner's lifetime. One Scanner owns one
// cache, so independent scanners can coexist in a process.
type Scanner struct {
	executor *Executor
	interval time.Duration
	scan     scanFunc
	clock    func() time.Time

	// cacheMu guards networks against the merge-vs-read race between
	// the scan loop goroutine and query callers.
	cacheMu  sync.RWMutex
	networks map[string]Network

	// lifecycleMu makes start/stop transitions atomic.
	lifecycleMu sync.Mutex
	running     bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewScanner creates a scanner for the given interface with an empty
// cache. A non-positive interval falls back to the default.
func NewScanner(iface string, interval time.Duration) *Scanner {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	s := &Scanner{
		executor: NewExecutor(iface),
		interval: interval,
		clock:    time.Now,
		networks: make(map[string]Network),
	}
	s.scan = s.scanCycle
	return s
}

// Interface returns the wireless interface this scanner is bound to.
func (s *Scanner) Interface() string {
	return s.executor.Interface
}

// SetScanTimeout overrides the per-invocation scan tool timeout. Call
// before Start; a non-positive value keeps the default.
func (s *Scanner) SetScanTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.executor.Timeout = timeout
	}
}

// ScanOnce performs a single scan cycle and returns the parsed networks.
// It is independently callable without starting continuous mode and does
// not touch the cache.
func (s *Scanner) ScanOnce(ctx context.Context) map[string]Network {
	return s.scan(ctx)
}

func (s *Scanner) scanCycle(ctx context.Context) map[string]Network {
	raw := s.executor.Run(ctx)
	networks := ParseScanOutput(raw, s.clock())

	status := "success"
	if len(networks) == 0 {
		status = "empty"
	}
	metrics.Global().IncrementScansTotal(s.executor.Interface, status)
	metrics.Global().ObserveNetworksPerScan(len(networks))

	return networks
}

// Start transitions the scanner to running and schedules the background
// scan loop. Starting an already running scanner is a warning no-op, so
// double starts never schedule a second loop.
func (s *Scanner) Start() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.running {
		logging.WarnScan("Wi-Fi scanner is already running", s.executor.Interface)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx)

	logging.InfoScan("started continuous Wi-Fi scanning", s.executor.Interface,
		"interval", s.interval)
}

// Stop signals cancellation to the scan loop and blocks until it has
// fully unwound. Stopping an idle scanner is a warning no-op; repeated
// stops are safe.
func (s *Scanner) Stop() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.running {
		logging.WarnScan("Wi-Fi scanner is not running", s.executor.Interface)
		return
	}

	s.cancel()
	<-s.done
	s.running = false

	logging.InfoScan("stopped continuous Wi-Fi scanning", s.executor.Interface)
}

// Running reports whether the continuous scan loop is active.
func (s *Scanner) Running() bool {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	return s.running
}

// loop runs scan cycles until cancellation. Cancellation is observed at
// the top of each iteration and during the inter-cycle sleep; an
// in-flight scan is allowed to finish first.
func (s *Scanner) loop(ctx context.Context) {
	defer close(s.done)

	for {
		if ctx.Err() != nil {
			return
		}

		results := s.scan(ctx)
		if len(results) > 0 {
			s.merge(results)
			logging.Debug("scan cycle complete",
				"interface", s.executor.Interface,
				"networks", len(results))
		} else {
			logging.WarnScan("Wi-Fi scan returned no results", s.executor.Interface)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}
	}
}

// merge overwrites cached records with a cycle's results, keyed by
// BSSID. Merging the same results twice leaves the cache unchanged.
func (s *Scanner) merge(results map[string]Network) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	for bssid, network := range results {
		s.networks[bssid] = network
	}
	metrics.Global().SetNetworksCached(len(s.networks))
}

// Networks returns the cached records whose signal level is at least
// minSignal. Pass DefaultMinSignal to admit everything. The returned map
// is a copy; readers never mutate the cache.
func (s *Scanner) Networks(minSignal int) map[string]Network {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	networks := make(map[string]Network, len(s.networks))
	for bssid, network := range s.networks {
		if network.SignalDBM >= minSignal {
			networks[bssid] = network
		}
	}
	return networks
}

// StrongestNetworks returns up to count cached records ordered by signal
// level descending. Ties are broken by BSSID so one call's ordering is
// deterministic.
func (s *Scanner) StrongestNetworks(count int) []Network {
	if count <= 0 {
		count = DefaultStrongestCount
	}

	s.cacheMu.RLock()
	networks := make([]Network, 0, len(s.networks))
	for _, network := range s.networks {
		networks = append(networks, network)
	}
	s.cacheMu.RUnlock()

	sort.Slice(networks, func(i, j int) bool {
		if networks[i].SignalDBM != networks[j].SignalDBM {
			return networks[i].SignalDBM > networks[j].SignalDBM
		}
		return networks[i].BSSID < networks[j].BSSID
	})

	if len(networks) > count {
		networks = networks[:count]
	}
	return networks
}

// CacheSize returns the number of distinct networks observed so far.
func (s *Scanner) CacheSize() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return len(s.networks)
}
