package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/radiomap/internal/config"
	"github.com/anstrom/radiomap/internal/storage"
)

type fakeSource struct {
	name     string
	readings map[string]int
	err      error
	calls    int
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Read(_ context.Context) (map[string]int, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.readings, nil
}

func newTestCollector(t *testing.T, sources ...Source) (*Collector, string) {
	t.Helper()
	dir := t.TempDir()
	appender, err := storage.NewAppender(dir)
	require.NoError(t, err)

	cfg := &config.CollectorConfig{
		Interval: 10 * time.Millisecond,
		X:        3,
		Y:        7,
	}
	return New(cfg, nil, appender, sources...), dir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	return records
}

func TestCollectOnce(t *testing.T) {
	t.Run("persists each modality to its own file", func(t *testing.T) {
		wifiSrc := &fakeSource{name: "wifi", readings: map[string]int{
			"aa:bb:cc:dd:ee:02": -70,
			"aa:bb:cc:dd:ee:01": -40,
		}}
		bleSrc := &fakeSource{name: "ble", readings: map[string]int{
			"11:22:33:44:55:66": -55,
		}}
		c, dir := newTestCollector(t, wifiSrc, bleSrc)

		result := c.CollectOnce(context.Background())
		assert.Equal(t, 1, result.Number)
		assert.ElementsMatch(t, []string{"wifi", "ble"}, result.Succeeded)
		assert.Empty(t, result.Failed)

		records := readCSV(t, filepath.Join(dir, "wifi_data.csv"))
		require.Len(t, records, 2)
		assert.Equal(t, []string{
			"timestamp", "x", "y", "session",
			"aa:bb:cc:dd:ee:01", "aa:bb:cc:dd:ee:02",
		}, records[0])
		assert.Equal(t, "3", records[1][1])
		assert.Equal(t, "7", records[1][2])
		assert.Equal(t, c.Session().String(), records[1][3])
		assert.Equal(t, "-40", records[1][4])
		assert.Equal(t, "-70", records[1][5])

		_, err := time.Parse(time.RFC3339, records[1][0])
		assert.NoError(t, err, "timestamp column should be RFC 3339")

		records = readCSV(t, filepath.Join(dir, "ble_data.csv"))
		require.Len(t, records, 2)
		assert.Equal(t, []string{
			"timestamp", "x", "y", "session", "11:22:33:44:55:66",
		}, records[0])
	})

	t.Run("failed source skips its file but not the others", func(t *testing.T) {
		readErr := errors.New("sensor unavailable")
		broken := &fakeSource{name: "light", err: readErr}
		working := &fakeSource{name: "wifi", readings: map[string]int{"aa:bb:cc:dd:ee:01": -40}}
		c, dir := newTestCollector(t, broken, working)

		result := c.CollectOnce(context.Background())
		assert.Equal(t, []string{"wifi"}, result.Succeeded)
		require.Contains(t, result.Failed, "light")
		assert.ErrorIs(t, result.Failed["light"], readErr)

		_, err := os.Stat(filepath.Join(dir, "light_data.csv"))
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(filepath.Join(dir, "wifi_data.csv"))
		assert.NoError(t, err)
	})

	t.Run("empty reading still writes a metadata row", func(t *testing.T) {
		src := &fakeSource{name: "wifi", readings: map[string]int{}}
		c, dir := newTestCollector(t, src)

		result := c.CollectOnce(context.Background())
		assert.Equal(t, []string{"wifi"}, result.Succeeded)

		records := readCSV(t, filepath.Join(dir, "wifi_data.csv"))
		require.Len(t, records, 2)
		assert.Equal(t, []string{"timestamp", "x", "y", "session"}, records[0])
	})

	t.Run("cycle numbers increment", func(t *testing.T) {
		src := &fakeSource{name: "wifi", readings: map[string]int{"aa:bb:cc:dd:ee:01": -40}}
		c, _ := newTestCollector(t, src)

		assert.Equal(t, 1, c.CollectOnce(context.Background()).Number)
		assert.Equal(t, 2, c.CollectOnce(context.Background()).Number)
		assert.Equal(t, 3, c.CollectOnce(context.Background()).Number)
	})

	t.Run("position updates apply to subsequent rows", func(t *testing.T) {
		src := &fakeSource{name: "wifi", readings: map[string]int{"aa:bb:cc:dd:ee:01": -40}}
		c, dir := newTestCollector(t, src)

		c.CollectOnce(context.Background())
		c.SetPosition(12, 34)
		c.CollectOnce(context.Background())

		records := readCSV(t, filepath.Join(dir, "wifi_data.csv"))
		require.Len(t, records, 3)
		assert.Equal(t, []string{"3", "7"}, records[1][1:3])
		assert.Equal(t, []string{"12", "34"}, records[2][1:3])
	})

	t.Run("new networks widen the file across cycles", func(t *testing.T) {
		src := &fakeSource{name: "wifi", readings: map[string]int{"aa:bb:cc:dd:ee:01": -40}}
		c, dir := newTestCollector(t, src)

		c.CollectOnce(context.Background())
		src.readings = map[string]int{
			"aa:bb:cc:dd:ee:01": -42,
			"aa:bb:cc:dd:ee:02": -60,
		}
		c.CollectOnce(context.Background())

		records := readCSV(t, filepath.Join(dir, "wifi_data.csv"))
		require.Len(t, records, 3)
		assert.Equal(t, []string{
			"timestamp", "x", "y", "session",
			"aa:bb:cc:dd:ee:01", "aa:bb:cc:dd:ee:02",
		}, records[0])
		// First row was written before the second network existed.
		assert.Equal(t, "", records[1][5])
		assert.Equal(t, "-60", records[2][5])
	})
}

func TestRun(t *testing.T) {
	t.Run("cycles on the interval until canceled", func(t *testing.T) {
		src := &fakeSource{name: "wifi", readings: map[string]int{"aa:bb:cc:dd:ee:01": -40}}
		c, _ := newTestCollector(t, src)

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
		defer cancel()

		err := c.Run(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.GreaterOrEqual(t, src.calls, 2, "expected the immediate cycle plus at least one tick")
	})

	t.Run("warmup delay defers the first cycle", func(t *testing.T) {
		src := &fakeSource{name: "wifi", readings: map[string]int{"aa:bb:cc:dd:ee:01": -40}}
		c, _ := newTestCollector(t, src)
		c.warmup = time.Hour

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		err := c.Run(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Zero(t, src.calls)
	})

	t.Run("invalid cron schedule is rejected", func(t *testing.T) {
		src := &fakeSource{name: "wifi", readings: map[string]int{"aa:bb:cc:dd:ee:01": -40}}
		c, _ := newTestCollector(t, src)
		c.schedule = "not a schedule"

		err := c.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid collection schedule")
	})
}

func TestBuildRow(t *testing.T) {
	c, _ := newTestCollector(t)

	row := c.buildRow("2026-02-01T10:00:00Z", 1, 2, map[string]int{
		"zz": -90,
		"aa": -30,
		"mm": -60,
	})
	assert.Equal(t, []string{"timestamp", "x", "y", "session", "aa", "mm", "zz"}, row.Columns())

	value, ok := row.Get("session")
	assert.True(t, ok)
	assert.Equal(t, c.Session().String(), value)
}
