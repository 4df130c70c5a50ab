package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const surveyPositionFields = 2

// surveyCmd represents the survey command.
var surveyCmd = &cobra.Command{
	Use:   "survey",
	Short: "Collect fingerprints interactively, position by position",
	Long: `Walk a survey grid and collect one fingerprint reading per prompt.
At each prompt, enter the current position as two integers ("x y") and
a collection cycle runs for every enabled modality at that position.
Enter 'q' to finish the survey.`,
	Example: `  radiomap survey
  radiomap survey --config survey.yaml`,
	RunE: runSurvey,
}

func init() {
	rootCmd.AddCommand(surveyCmd)
}

func runSurvey(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
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
	go func() {
		<-sigChan
		cancel()
		// Unblock the stdin read by closing the prompt loop's input.
		_ = os.Stdin.Close()
	}()

	stack.scanner.Start()
	defer stack.scanner.Stop()

	fmt.Printf("Survey session %s\n", stack.collector.Session())
	fmt.Printf("Data directory: %s\n", cfg.Collector.DataDir)
	if cfg.Collector.WarmupDelay > 0 {
		fmt.Printf("Warming up Wi-Fi cache for %s...\n", cfg.Collector.WarmupDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(cfg.Collector.WarmupDelay):
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("Position (x y, or 'q' to quit): ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "q") {
			break
		}

		var x, y int
		if n, err := fmt.Sscanf(line, "%d %d", &x, &y); err != nil || n != surveyPositionFields {
			fmt.Println("Expected two integers, e.g. '3 7'")
			continue
		}

		stack.collector.SetPosition(x, y)
		result := stack.collector.CollectOnce(ctx)
		fmt.Printf("Reading #%d at (%d, %d): %d/%d modalities ok\n",
			result.Number, x, y, len(result.Succeeded),
			len(result.Succeeded)+len(result.Failed))
		for name, err := range result.Failed {
			fmt.Printf("  %s failed: %v\n", name, err)
		}

		if ctx.Err() != nil {
			break
		}
	}

	fmt.Println("Survey complete")
	return nil
}
