// File: internal/provision/discovery_test.go
package provision

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/access-provisioner/internal/browser"
	"github.com/xkilldash9x/access-provisioner/internal/browser/browserfake"
	"github.com/xkilldash9x/access-provisioner/internal/fault"
)

func TestWaitVisible(t *testing.T) {
	logger, logs := observedLogger()
	l := NewLocator(logger)
	doc := browserfake.NewDocument("#present")

	assert.True(t, l.WaitVisible(context.Background(), doc, "#present", time.Second))
	assert.False(t, l.WaitVisible(context.Background(), doc, "#absent", 250*time.Millisecond))

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "#absent", warnings[0].ContextMap()["selector"])

	calls := doc.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 250*time.Millisecond, calls[1].Timeout)
}

func TestFindFrameAppearsOnAttempt(t *testing.T) {
	const maxAttempts = 5
	for k := 1; k <= maxAttempts; k++ {
		t.Run(fmt.Sprintf("attempt %d", k), func(t *testing.T) {
			logger, _ := observedLogger()
			target := browserfake.NewFrame("https://console.test/usuarios_incluiGrupo.do")
			other := browserfake.NewFrame("https://console.test/menu.do")

			page := browserfake.NewPage()
			page.FramesFunc = func(attempt int) ([]browser.Frame, error) {
				if attempt >= k {
					return []browser.Frame{other, target}, nil
				}
				return []browser.Frame{other}, nil
			}

			f, err := NewLocator(logger).FindFrame(context.Background(), page, "incluiGrupo", maxAttempts, time.Millisecond)
			require.NoError(t, err)
			assert.Same(t, target, f)
			assert.Equal(t, k, page.Snapshots())
		})
	}
}

func TestFindFrameFirstMatchWins(t *testing.T) {
	logger, _ := observedLogger()
	first := browserfake.NewFrame("https://a.test/menu.do")
	second := browserfake.NewFrame("https://b.test/menu.do")
	page := browserfake.NewPage()
	page.SetFrames(first, second)

	f, err := NewLocator(logger).FindFrame(context.Background(), page, "menu.do", 1, time.Millisecond)
	require.NoError(t, err)
	assert.Same(t, first, f)
}

func TestFindFrameExhaustsAttempts(t *testing.T) {
	logger, _ := observedLogger()
	page := browserfake.NewPage()
	page.SetFrames(browserfake.NewFrame("https://console.test/menu.do"))

	const (
		attempts = 4
		interval = 10 * time.Millisecond
	)
	start := time.Now()
	_, err := NewLocator(logger).FindFrame(context.Background(), page, "never.do", attempts, interval)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, fault.FrameNotFound, fault.KindOf(err))
	assert.Equal(t, attempts, page.Snapshots())
	assert.Less(t, elapsed, attempts*interval+time.Second)
	assert.GreaterOrEqual(t, elapsed, (attempts-1)*interval)
}

func TestFindFrameSnapshotErrorCountsAsAttempt(t *testing.T) {
	logger, logs := observedLogger()
	target := browserfake.NewFrame("https://console.test/menu.do")
	page := browserfake.NewPage()
	page.FramesFunc = func(attempt int) ([]browser.Frame, error) {
		if attempt == 1 {
			return nil, errors.New("execution context was destroyed")
		}
		return []browser.Frame{target}, nil
	}

	f, err := NewLocator(logger).FindFrame(context.Background(), page, "menu.do", 3, time.Millisecond)
	require.NoError(t, err)
	assert.Same(t, target, f)
	assert.Equal(t, 2, page.Snapshots())
	assert.Contains(t, messages(logs, zapcore.WarnLevel), "Frame snapshot failed.")
}

func TestFindFrameCanceled(t *testing.T) {
	logger, _ := observedLogger()
	page := browserfake.NewPage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocator(logger).FindFrame(ctx, page, "menu.do", 10, time.Hour)
	require.Error(t, err)
	assert.Equal(t, fault.CriticalError, fault.KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindFrameZeroAttemptsTakesOneSnapshot(t *testing.T) {
	logger, _ := observedLogger()
	page := browserfake.NewPage()

	_, err := NewLocator(logger).FindFrame(context.Background(), page, "menu.do", 0, time.Millisecond)
	assert.Equal(t, fault.FrameNotFound, fault.KindOf(err))
	assert.Equal(t, 1, page.Snapshots())
}
