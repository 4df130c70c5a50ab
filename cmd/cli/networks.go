package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/radiomap/internal/wifi"
)

var (
	networksInterface string
	networksTimeout   time.Duration
	networksMinSignal int
	networksStrongest int
)

// networksCmd represents the networks command.
var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "Scan once and list visible Wi-Fi networks",
	Long: `Perform a single Wi-Fi scan and display the visible networks sorted
by signal strength. Useful for checking interface permissions and
coverage before starting a survey.`,
	Example: `  radiomap networks
  radiomap networks --interface wlan1 --min-signal -75
  radiomap networks --strongest 5`,
	RunE: runNetworks,
}

func init() {
	rootCmd.AddCommand(networksCmd)

	networksCmd.Flags().StringVar(&networksInterface, "interface", "", "Wireless interface to scan (default from config)")
	networksCmd.Flags().DurationVar(&networksTimeout, "timeout", 0, "Scan timeout (default from config)")
	networksCmd.Flags().IntVar(&networksMinSignal, "min-signal", wifi.DefaultMinSignal, "Hide networks weaker than this dBm level")
	networksCmd.Flags().IntVar(&networksStrongest, "strongest", 0, "Show only the N strongest networks")
}

func runNetworks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	iface := cfg.WiFi.Interface
	if networksInterface != "" {
		iface = networksInterface
	}
	timeout := cfg.WiFi.ScanTimeout
	if networksTimeout > 0 {
		timeout = networksTimeout
	}

	scanner := wifi.NewScanner(iface, cfg.WiFi.ScanInterval)
	scanner.SetScanTimeout(timeout)

	fmt.Printf("Scanning on %s...\n", displayInterface(iface))
	networks := scanner.ScanOnce(context.Background())

	filtered := make([]wifi.Network, 0, len(networks))
	for _, network := range networks {
		if network.SignalDBM >= networksMinSignal {
			filtered = append(filtered, network)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].SignalDBM != filtered[j].SignalDBM {
			return filtered[i].SignalDBM > filtered[j].SignalDBM
		}
		return filtered[i].BSSID < filtered[j].BSSID
	})
	if networksStrongest > 0 && len(filtered) > networksStrongest {
		filtered = filtered[:networksStrongest]
	}

	if len(filtered) == 0 {
		fmt.Println("No networks found")
		return nil
	}

	displayNetworksTable(filtered)
	fmt.Printf("\nFound %d network(s)\n", len(filtered))
	return nil
}

func displayInterface(iface string) string {
	if iface == "" {
		return "all interfaces"
	}
	return iface
}

// displayNetworksTable displays scan results in a table format
func displayNetworksTable(networks []wifi.Network) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("BSSID", "ESSID", "Signal (dBm)", "Security", "Frequency")

	for i := range networks {
		network := &networks[i]

		essid := "<hidden>"
		if network.ESSID != nil {
			essid = *network.ESSID
		}
		frequency := "unknown"
		if network.Frequency != nil {
			frequency = *network.Frequency
		}

		_ = table.Append([]string{
			network.BSSID,
			essid,
			strconv.Itoa(network.SignalDBM),
			string(network.Security),
			frequency,
		})
	}

	_ = table.Render()
}
