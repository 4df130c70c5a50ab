package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anstrom/radiomap/internal/api"
	"github.com/anstrom/radiomap/internal/ble"
	"github.com/anstrom/radiomap/internal/collector"
	"github.com/anstrom/radiomap/internal/config"
	"github.com/anstrom/radiomap/internal/light"
	"github.com/anstrom/radiomap/internal/logging"
	"github.com/anstrom/radiomap/internal/storage"
	"github.com/anstrom/radiomap/internal/wifi"
)

var (
	collectX int
	collectY int
)

// collectCmd represents the collect command.
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run continuous fingerprint collection",
	Long: `Run continuous fingerprint collection at a fixed survey position.
The Wi-Fi scanner runs in the background while the collector appends
one row per modality per cycle, tagged with the position and session.
Collection runs until interrupted.`,
	Example: `  radiomap collect --x 3 --y 7
  radiomap collect --x 0 --y 0 --config survey.yaml`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().IntVar(&collectX, "x", 0, "Survey position x coordinate")
	collectCmd.Flags().IntVar(&collectY, "y", 0, "Survey position y coordinate")
}

// collectionStack bundles the components a collection run needs.
type collectionStack struct {
	scanner   *wifi.Scanner
	collector *collector.Collector
	closers   []func() error
}

// close releases sensor resources in reverse acquisition order.
func (s *collectionStack) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cleanup failed: %v\n", err)
		}
	}
}

// buildCollectionStack assembles the scanner, sources, and collector
// from configuration. Optional modalities are only initialized when
// enabled; a modality that fails to initialize aborts the run rather
// than silently collecting less than asked for.
func buildCollectionStack(cfg *config.Config) (*collectionStack, error) {
	scanner := wifi.NewScanner(cfg.WiFi.Interface, cfg.WiFi.ScanInterval)
	scanner.SetScanTimeout(cfg.WiFi.ScanTimeout)

	appender, err := storage.NewAppender(cfg.Collector.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	stack := &collectionStack{scanner: scanner}
	sources := []collector.Source{
		&collector.WiFiSource{Scanner: scanner, MinSignal: cfg.WiFi.MinSignal},
	}

	if cfg.BLE.Enabled {
		if err := ble.OpenDevice(); err != nil {
			return nil, fmt.Errorf("failed to open BLE device: %w", err)
		}
		stack.closers = append(stack.closers, ble.CloseDevice)
		sources = append(sources, &collector.BLESource{
			Scanner: ble.NewScanner(cfg.BLE.ScanDuration, cfg.BLE.Retries),
		})
	}

	if cfg.Light.Enabled {
		sensor, err := light.New(cfg.Light.Bus, cfg.Light.Addr, cfg.Light.Gain, cfg.Light.ATime)
		if err != nil {
			stack.close()
			return nil, fmt.Errorf("failed to open light sensor: %w", err)
		}
		stack.closers = append(stack.closers, sensor.Close)
		sources = append(sources, &collector.LightSource{Sensor: sensor})
	}

	stack.collector = collector.New(&cfg.Collector, scanner, appender, sources...)
	return stack, nil
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("x") {
		cfg.Collector.X = collectX
	}
	if cmd.Flags().Changed("y") {
		cfg.Collector.Y = collectY
	}

	stack, err := buildCollectionStack(cfg)
	if err != nil {
		return err
	}
	defer stack.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	collectorErrChan := make(chan error, 1)
	go func() {
		collectorErrChan <- stack.collector.Run(ctx)
	}()

	serverErrChan := make(chan error, 1)
	if cfg.API.Enabled {
		apiServer := api.New(&cfg.API, stack.scanner, stack.collector)
		go func() {
			if err := apiServer.Start(ctx); err != nil {
				serverErrChan <- err
			}
		}()
		fmt.Printf("Status API listening on %s\n", apiServer.Address())
	}

	x, y := stack.collector.Position()
	fmt.Printf("Collecting at position (%d, %d), session %s\n", x, y, stack.collector.Session())
	fmt.Printf("Data directory: %s\n", cfg.Collector.DataDir)
	fmt.Println("Press Ctrl+C to stop")

	select {
	case sig := <-sigChan:
		logging.Info("Received shutdown signal", "signal", sig.String())
		cancel()
		<-collectorErrChan
		return nil
	case err := <-collectorErrChan:
		if err != nil && err != context.Canceled {
			return fmt.Errorf("collector failed: %w", err)
		}
		return nil
	case err := <-serverErrChan:
		cancel()
		<-collectorErrChan
		return fmt.Errorf("API server failed: %w", err)
	}
}
