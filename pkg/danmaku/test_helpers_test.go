package danmaku

import (
	"errors"
	"testing"
	"time"
)

// testClock 可手动推进的帧时钟
type testClock struct {
	now int64
}

func (c *testClock) FrameTimeNanos() int64 { return c.now }

func (c *testClock) advance(d time.Duration) { c.now += int64(d) }

func (c *testClock) set(d time.Duration) { c.now = int64(d) }

// testGeometry 固定尺寸的轨道状态
type testGeometry struct {
	trackHeight int
	trackWidth  int
	hostHeight  int
}

func (g *testGeometry) TrackHeight() int { return g.trackHeight }
func (g *testGeometry) TrackWidth() int  { return g.trackWidth }
func (g *testGeometry) HostHeight() int  { return g.hostHeight }

func newTestDanmaku(text string, width int) *Danmaku {
	return &Danmaku{ID: text, Text: text, Width: width}
}

// expectPanic 断言 fn 以包装了 target 的 error panic
func expectPanic(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("Expected panic wrapping %v, got none", target)
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("Expected error panic value, got %T: %v", r, r)
		}
		if !errors.Is(err, target) {
			t.Fatalf("Expected panic wrapping %v, got %v", target, err)
		}
	}()
	fn()
}
