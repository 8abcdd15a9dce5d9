package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmmcquay/othello-dataset/internal/logging"
)

func TestShutdownManager(t *testing.T) {
	logger := logging.NewNopLogger()

	t.Run("runs in reverse order", func(t *testing.T) {
		manager := NewManager(logger)
		var order []string

		for i := 0; i < 3; i++ {
			name := fmt.Sprintf("component-%d", i)
			manager.Register(name, func(ctx context.Context) error {
				order = append(order, name)
				return nil
			})
		}

		require.NoError(t, manager.Shutdown(5*time.Second))
		assert.Equal(t, []string{"component-2", "component-1", "component-0"}, order)
	})

	t.Run("collects errors and keeps going", func(t *testing.T) {
		manager := NewManager(logger)
		errExpected := errors.New("shutdown error")
		var ranFirst bool

		manager.Register("successful-component", func(ctx context.Context) error {
			ranFirst = true
			return nil
		})
		manager.Register("failing-component", func(ctx context.Context) error {
			return errExpected
		})

		err := manager.Shutdown(5 * time.Second)
		require.Error(t, err)
		assert.ErrorIs(t, err, errExpected)
		assert.Contains(t, err.Error(), "failing-component")
		assert.True(t, ranFirst)
	})

	t.Run("timeout bounds slow components", func(t *testing.T) {
		manager := NewManager(logger)

		manager.Register("slow-component", func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
				return nil
			}
		})

		start := time.Now()
		err := manager.Shutdown(100 * time.Millisecond)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("concurrent shutdown calls run once", func(t *testing.T) {
		manager := NewManager(logger)
		var counter atomic.Int32

		manager.Register("component", func(ctx context.Context) error {
			counter.Add(1)
			time.Sleep(50 * time.Millisecond)
			return nil
		})

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = manager.Shutdown(5 * time.Second)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), counter.Load())
	})

	t.Run("done channel", func(t *testing.T) {
		manager := NewManager(logger)
		done := manager.Done()

		select {
		case <-done:
			t.Fatal("Done channel closed before shutdown")
		default:
		}

		require.NoError(t, manager.Shutdown(time.Second))

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("Done channel not closed after shutdown")
		}
	})
}

func TestHandleSignals(t *testing.T) {
	manager := NewManager(logging.NewNopLogger())
	var cleaned atomic.Bool
	manager.Register("sink", func(ctx context.Context) error {
		cleaned.Store(true)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := manager.HandleSignals(cancel)
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-manager.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not run after SIGTERM")
	}
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.True(t, cleaned.Load())
}

func TestHandleSignalsStop(t *testing.T) {
	manager := NewManager(logging.NewNopLogger())
	stop := manager.HandleSignals(nil)
	stop()
	stop()

	select {
	case <-manager.Done():
		t.Fatal("stopping the handler must not trigger shutdown")
	default:
	}
}
