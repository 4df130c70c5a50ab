// Package collector drives periodic fingerprint collection cycles. Each
// cycle reads every configured sensor modality at the current survey
// position and appends one row per modality to its CSV file, tagged
// with a timestamp, the position, and a session identifier.
package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/anstrom/radiomap/internal/config"
	"github.com/anstrom/radiomap/internal/logging"
	"github.com/anstrom/radiomap/internal/metrics"
	"github.com/anstrom/radiomap/internal/storage"
	"github.com/anstrom/radiomap/internal/wifi"
)

// Metadata column names, written ahead of the reading columns in every
// row so rows from different positions and sessions stay attributable.
const (
	columnTimestamp = "timestamp"
	columnX         = "x"
	columnY         = "y"
	columnSession   = "session"
)

// Collector runs collection cycles over a set of sensor sources,
// persisting each modality to <name>_data.csv under the appender's
// base directory.
type Collector struct {
	scanner  *wifi.Scanner
	sources  []Source
	appender *storage.Appender
	session  uuid.UUID

	interval time.Duration
	schedule string
	warmup   time.Duration

	posMu sync.Mutex
	x, y  int

	cycleMu sync.Mutex
	cycles  int

	clock func() time.Time
}

// CycleResult summarizes one collection cycle.
type CycleResult struct {
	// Number is the 1-based cycle counter within this collector.
	Number int

	// Succeeded holds the names of modalities whose readings were
	// read and persisted.
	Succeeded []string

	// Failed maps each failed modality to its error.
	Failed map[string]error
}

// New creates a collector over the given scanner, sources, and storage.
// The wifi scanner's continuous loop is managed by Run; it is passed
// separately from its Source adapter so lifecycle stays in one place.
func New(cfg *config.CollectorConfig, scanner *wifi.Scanner, appender *storage.Appender, sources ...Source) *Collector {
	return &Collector{
		scanner:  scanner,
		sources:  sources,
		appender: appender,
		session:  uuid.New(),
		interval: cfg.Interval,
		schedule: cfg.Schedule,
		warmup:   cfg.WarmupDelay,
		x:        cfg.X,
		y:        cfg.Y,
		clock:    time.Now,
	}
}

// Session returns the identifier stamped on every row this collector
// writes.
func (c *Collector) Session() uuid.UUID {
	return c.session
}

// SetPosition updates the survey position stamped on subsequent rows.
func (c *Collector) SetPosition(x, y int) {
	c.posMu.Lock()
	defer c.posMu.Unlock()
	c.x, c.y = x, y
	logging.InfoCollector("Survey position updated", "x", x, "y", y)
}

// Position returns the current survey position.
func (c *Collector) Position() (x, y int) {
	c.posMu.Lock()
	defer c.posMu.Unlock()
	return c.x, c.y
}

// CollectOnce runs a single collection cycle: every source is read and
// its result appended to the modality's CSV file. A failing source is
// logged and skipped; the remaining modalities still persist.
func (c *Collector) CollectOnce(ctx context.Context) CycleResult {
	started := c.clock()
	m := metrics.Global()

	c.cycleMu.Lock()
	c.cycles++
	result := CycleResult{
		Number: c.cycles,
		Failed: make(map[string]error),
	}
	c.cycleMu.Unlock()

	x, y := c.Position()
	timestamp := started.Format(time.RFC3339)

	for _, source := range c.sources {
		name := source.Name()

		readStart := c.clock()
		readings, err := source.Read(ctx)
		m.RecordSensorDuration(name, c.clock().Sub(readStart))
		if err != nil {
			m.IncrementSensorReads(name, "error")
			logging.ErrorSensor("Sensor read failed", name, err, "cycle", result.Number)
			result.Failed[name] = err
			continue
		}
		m.IncrementSensorReads(name, "success")
		if len(readings) == 0 {
			logging.InfoSensor("Sensor read returned no readings", name, "cycle", result.Number)
		}

		row := c.buildRow(timestamp, x, y, readings)
		file := fmt.Sprintf("%s_data.csv", name)
		if err := c.appender.Append(file, row); err != nil {
			logging.ErrorStorage("Failed to persist sensor readings", err,
				"sensor", name, "file", file, "cycle", result.Number)
			result.Failed[name] = err
			continue
		}
		result.Succeeded = append(result.Succeeded, name)
	}

	m.RecordCycleDuration(c.clock().Sub(started))
	m.IncrementCyclesTotal(cycleStatus(result))
	logging.InfoCollector(
		fmt.Sprintf("Reading #%d complete: %d/%d modalities ok",
			result.Number, len(result.Succeeded), len(c.sources)),
		"x", x, "y", y, "failed", len(result.Failed))
	return result
}

// buildRow lays out one CSV row: metadata columns first, in a fixed
// order, then the readings sorted by identifier so column order is
// deterministic across cycles.
func (c *Collector) buildRow(timestamp string, x, y int, readings map[string]int) *storage.Row {
	row := storage.NewRow()
	row.Set(columnTimestamp, timestamp)
	row.SetInt(columnX, x)
	row.SetInt(columnY, y)
	row.Set(columnSession, c.session.String())

	keys := make([]string, 0, len(readings))
	for key := range readings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		row.SetInt(key, readings[key])
	}
	return row
}

// Run executes collection cycles until ctx is canceled. It starts the
// continuous Wi-Fi scanner, waits out the warmup delay so the first
// cycle sees a populated cache, then cycles on the configured interval
// or cron schedule. The scanner is stopped before Run returns.
func (c *Collector) Run(ctx context.Context) error {
	if c.scanner != nil {
		c.scanner.Start()
		defer c.scanner.Stop()
	}

	logging.InfoCollector("Collector starting",
		"session", c.session.String(),
		"sources", len(c.sources),
		"warmup", c.warmup.String())

	if c.warmup > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.warmup):
		}
	}

	if c.schedule != "" {
		return c.runScheduled(ctx)
	}
	return c.runInterval(ctx)
}

func (c *Collector) runInterval(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.CollectOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			logging.InfoCollector("Collector stopping", "cycles", c.cycleCount())
			return ctx.Err()
		case <-ticker.C:
			c.CollectOnce(ctx)
		}
	}
}

func (c *Collector) runScheduled(ctx context.Context) error {
	runner := cron.New()
	_, err := runner.AddFunc(c.schedule, func() {
		c.CollectOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid collection schedule %q: %w", c.schedule, err)
	}

	runner.Start()
	<-ctx.Done()

	// Stop returns a context that completes once in-flight jobs finish.
	<-runner.Stop().Done()
	logging.InfoCollector("Collector stopping", "cycles", c.cycleCount())
	return ctx.Err()
}

func (c *Collector) cycleCount() int {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	return c.cycles
}

func cycleStatus(result CycleResult) string {
	switch {
	case len(result.Failed) == 0:
		return "success"
	case len(result.Succeeded) == 0:
		return "failure"
	default:
		return "partial"
	}
}
