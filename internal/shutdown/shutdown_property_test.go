package shutdown

import (
	"context"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// mockComponent counts its shutdowns and can be made slow.
type mockComponent struct {
	name          string
	shutdownDelay time.Duration
	shutdownCount int32
}

func (m *mockComponent) Name() string {
	return m.name
}

func (m *mockComponent) Shutdown(ctx context.Context) error {
	atomic.AddInt32(&m.shutdownCount, 1)
	select {
	case <-time.After(m.shutdownDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *mockComponent) count() int {
	return int(atomic.LoadInt32(&m.shutdownCount))
}

// Property: a shutdown signal shuts every registered component down exactly
// once and the coordinator exits cleanly when they finish within the
// timeout.
func TestAllComponentsShutDownOnce(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("every component shuts down exactly once", prop.ForAll(
		func(numComponents int) bool {
			sigCh := make(chan os.Signal, 1)
			coordinator := NewCoordinator(
				WithTimeout(2*time.Second),
				WithSignalChannel(sigCh),
			)

			components := make([]*mockComponent, numComponents)
			for i := range components {
				components[i] = &mockComponent{name: "component-" + string(rune('A'+i))}
				coordinator.Register(components[i])
			}

			go coordinator.WaitForSignal()
			sigCh <- syscall.SIGTERM

			coordinator.Wait()

			for _, comp := range components {
				if comp.count() != 1 {
					return false
				}
			}
			return coordinator.ExitCode() == 0
		},
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}

func TestShutdownTimeoutForcesExit(t *testing.T) {
	coordinator := NewCoordinator(WithTimeout(50 * time.Millisecond))
	coordinator.Register(&mockComponent{name: "slow", shutdownDelay: 5 * time.Second})

	start := time.Now()
	coordinator.Shutdown()
	coordinator.Wait()

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("shutdown took %v, should be bounded by the timeout", elapsed)
	}
	if coordinator.ExitCode() != 1 {
		t.Errorf("exit code = %d, want 1 on forced termination", coordinator.ExitCode())
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	coordinator := NewCoordinator(WithTimeout(time.Second))
	comp := &mockComponent{name: "once"}
	coordinator.Register(comp)

	coordinator.Shutdown()
	coordinator.Shutdown()
	coordinator.Wait()

	if comp.count() != 1 {
		t.Errorf("shutdown count = %d, want 1", comp.count())
	}
}
