package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCommand(name string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name {
			return true
		}
	}
	return false
}

func TestCommandRegistration(t *testing.T) {
	for _, name := range []string{"collect", "survey", "networks", "version"} {
		assert.True(t, findCommand(name), "expected %q command to be registered", name)
	}
}

func TestVersionInfo(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2026-01-01")
	defer SetVersion("dev", "none", "unknown")

	assert.Equal(t, "1.2.3 (commit: abc123, built: 2026-01-01)", getVersion())
	assert.Equal(t, getVersion(), rootCmd.Version)
}

func TestNetworksFlagDefaults(t *testing.T) {
	flag := networksCmd.Flags().Lookup("min-signal")
	require.NotNil(t, flag)
	assert.Equal(t, "-100", flag.DefValue)

	flag = networksCmd.Flags().Lookup("strongest")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestDisplayInterface(t *testing.T) {
	assert.Equal(t, "wlan0", displayInterface("wlan0"))
	assert.Equal(t, "all interfaces", displayInterface(""))
}
