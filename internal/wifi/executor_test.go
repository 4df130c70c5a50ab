package wifi

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorRun(t *testing.T) {
	t.Run("builds command with interface argument", func(t *testing.T) {
		var gotName string
		var gotArgs []string

		executor := NewExecutor("wlan0")
		executor.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
			gotName = name
			gotArgs = args
			return []byte("output"), nil
		}

		out := executor.Run(context.Background())
		assert.Equal(t, "output", out)
		assert.Equal(t, "iwlist", gotName)
		assert.Equal(t, []string{"wlan0", "scan"}, gotArgs)
	})

	t.Run("omits interface argument when unset", func(t *testing.T) {
		var gotArgs []string

		executor := NewExecutor("")
		executor.run = func(_ context.Context, _ string, args ...string) ([]byte, error) {
			gotArgs = args
			return nil, nil
		}

		executor.Run(context.Background())
		assert.Equal(t, []string{"scan"}, gotArgs)
	})

	t.Run("replaces invalid byte sequences in output", func(t *testing.T) {
		executor := NewExecutor("wlan0")
		executor.run = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
			return []byte{'E', 'S', 'S', 'I', 'D', ':', 0xff, 0xfe}, nil
		}

		out := executor.Run(context.Background())
		assert.Equal(t, "ESSID:��", out)
	})

	t.Run("missing tool yields empty result", func(t *testing.T) {
		executor := NewExecutor("wlan0")
		executor.run = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
			return nil, exec.ErrNotFound
		}

		assert.Empty(t, executor.Run(context.Background()))
	})

	t.Run("nonzero exit yields empty result", func(t *testing.T) {
		// Manufacture a real *exec.ExitError to exercise classification.
		exitErr := exec.Command("sh", "-c", "exit 3").Run()
		var asExit *exec.ExitError
		require.ErrorAs(t, exitErr, &asExit)

		executor := NewExecutor("wlan0")
		executor.run = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
			return []byte("partial output before failure"), exitErr
		}

		assert.Empty(t, executor.Run(context.Background()))
	})

	t.Run("timeout yields empty result", func(t *testing.T) {
		executor := NewExecutor("wlan0")
		executor.Timeout = 10 * time.Millisecond
		executor.run = func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}

		start := time.Now()
		assert.Empty(t, executor.Run(context.Background()))
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("unexpected error yields empty result", func(t *testing.T) {
		executor := NewExecutor("wlan0")
		executor.run = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
			return nil, errors.New("fork failed")
		}

		assert.Empty(t, executor.Run(context.Background()))
	})

	t.Run("zero timeout falls back to default", func(t *testing.T) {
		executor := NewExecutor("wlan0")
		executor.Timeout = 0

		var sawDeadline bool
		executor.run = func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
			_, sawDeadline = ctx.Deadline()
			return nil, nil
		}

		executor.Run(context.Background())
		assert.True(t, sawDeadline)
	})
}
