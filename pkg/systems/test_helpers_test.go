package systems

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/gonewx/danmaku/pkg/config"
	"github.com/gonewx/danmaku/pkg/danmaku"
	"github.com/gonewx/danmaku/pkg/ecs"
	"github.com/gonewx/danmaku/pkg/game"
)

// testWorld 测试用的轨道环境
type testWorld struct {
	em        *ecs.EntityManager
	clock     *game.FrameClock
	layout    *game.TrackLayout
	config    *config.DanmakuConfig
	allocator *TrackAllocator
	ticker    *DanmakuTickSystem
}

// newTestWorld 创建 1280x720、无速度波动的轨道环境
func newTestWorld(t *testing.T, mutate func(cfg *config.DanmakuConfig)) *testWorld {
	t.Helper()
	cfg := config.DefaultDanmakuConfig()
	cfg.SpeedFluctuation = 0
	cfg.FloatingTracks = 2
	cfg.TopTracks = 1
	cfg.BottomTracks = 1
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}

	em := ecs.NewEntityManager()
	clock := game.NewFrameClock()
	layout := game.NewTrackLayout(1280, 720, cfg.TrackHeight)
	allocator := NewTrackAllocator(em, clock, layout, cfg, rand.New(rand.NewPCG(1, 2)))
	allocator.InitializeTracks()

	return &testWorld{
		em:        em,
		clock:     clock,
		layout:    layout,
		config:    cfg,
		allocator: allocator,
		ticker:    NewDanmakuTickSystem(em),
	}
}

// step 推进时钟并执行逻辑帧
func (w *testWorld) step(d time.Duration) {
	w.clock.Advance(d)
	w.ticker.Update()
}

func newFloating(text string, width int) *danmaku.Danmaku {
	return &danmaku.Danmaku{Text: text, Width: width, Location: danmaku.LocationNormal}
}

func newFixed(text string, width int, location danmaku.Location) *danmaku.Danmaku {
	return &danmaku.Danmaku{Text: text, Width: width, Location: location}
}

// recordingRenderer 记录每次绘制调用
type recordingRenderer struct {
	calls []renderCall
}

type renderCall struct {
	text string
	x, y float64
}

func (r *recordingRenderer) DrawDanmaku(d *danmaku.Danmaku, x, y float64) {
	r.calls = append(r.calls, renderCall{text: d.Text, x: x, y: y})
}
