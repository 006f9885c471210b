// danmaku-tui 在终端中回放弹幕脚本
//
// 每个终端单元格按 1 像素计算，一行就是一条轨道，
// 用于在没有图形环境的机器上观察轨道分配效果。
//
// 用法:
//
//	go run ./cmd/danmaku-tui -script data/comments.yaml
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/gonewx/danmaku/pkg/config"
	"github.com/gonewx/danmaku/pkg/ecs"
	"github.com/gonewx/danmaku/pkg/game"
	"github.com/gonewx/danmaku/pkg/systems"
	"github.com/gonewx/danmaku/pkg/utils"
)

const (
	frameInterval = 16 * time.Millisecond // ~60 FPS
	// cellWidthPx 一个终端单元格相当于的像素宽度，用于换算配置中的像素值
	cellWidthPx = 8
)

var (
	configPath = flag.String("config", "data/danmaku.yaml", "轨道配置文件路径")
	scriptPath = flag.String("script", "data/comments.yaml", "弹幕脚本文件路径")
	logPath    = flag.String("log", "", "日志文件路径（终端被占用，日志只能写入文件）")
)

// overlay 终端弹幕回放状态
type overlay struct {
	screen    tcell.Screen
	clock     *game.FrameClock
	layout    *game.TrackLayout
	allocator *systems.TrackAllocator
	ticker    *systems.DanmakuTickSystem
	render    *systems.DanmakuRenderSystem
	player    *game.ScriptPlayer
	renderer  *cellRenderer

	videoNanos int64
	lastFrame  time.Time
	paused     bool
	enabled    bool
	placed     int
	dropped    int
}

// terminalConfig 把像素单位的配置换算为单元格
func terminalConfig(cfg *config.DanmakuConfig) *config.DanmakuConfig {
	converted := *cfg
	converted.TrackHeight = 1
	converted.BaseSpeedPxPerSecond = cfg.BaseSpeedPxPerSecond / cellWidthPx
	converted.SafeSeparation = cfg.SafeSeparation / cellWidthPx
	converted.BaseSpeedTextWidth = max(cfg.BaseSpeedTextWidth/cellWidthPx, 1)
	return &converted
}

func newOverlay(screen tcell.Screen, cfg *config.DanmakuConfig, script *game.CommentScript) *overlay {
	cols, rows := screen.Size()
	clock := game.NewFrameClock()
	// 最后一行显示状态栏
	layout := game.NewTrackLayout(cols, max(rows-1, 1), cfg.TrackHeight)
	em := ecs.NewEntityManager()

	allocator := systems.NewTrackAllocator(em, clock, layout, cfg, nil)
	allocator.InitializeTracks()

	return &overlay{
		screen:    screen,
		clock:     clock,
		layout:    layout,
		allocator: allocator,
		ticker:    systems.NewDanmakuTickSystem(em),
		render:    systems.NewDanmakuRenderSystem(em),
		player:    game.NewScriptPlayer(script, utils.MeasureCellWidth),
		renderer:  newCellRenderer(screen),
		lastFrame: time.Now(),
		enabled:   true,
	}
}

// update 推进一帧：帧时钟、轨道逻辑帧、放置新弹幕
func (o *overlay) update(now time.Time) {
	elapsed := now.Sub(o.lastFrame)
	o.lastFrame = now
	if !o.paused {
		o.clock.Advance(elapsed)
		o.videoNanos += int64(elapsed)
	}
	o.ticker.Update()

	videoMillis := time.Duration(o.videoNanos).Milliseconds()
	if o.player.Finished(videoMillis) && o.player.Loop() {
		log.Printf("[TUI] Script finished at %dms, looping", videoMillis)
		o.videoNanos = 0
		videoMillis = 0
		o.ticker.ClearAll()
		o.player.Seek(0)
	}

	for _, d := range o.player.Due(videoMillis) {
		if !o.enabled {
			continue
		}
		placeTime := game.PlaceFrameTime(o.clock.FrameTimeNanos(), videoMillis, d.VideoTime)
		if o.allocator.Dispatch(d, placeTime) == systems.DispatchPlaced {
			o.placed++
		} else {
			o.dropped++
		}
	}
}

func (o *overlay) handleResize() {
	o.screen.Sync()
	cols, rows := o.screen.Size()
	if o.layout.Resize(cols, max(rows-1, 1)) {
		log.Printf("[TUI] Resized to %dx%d", cols, rows)
		o.allocator.OnResize()
	}
}

// handleInput 处理按键，返回 false 表示退出
func (o *overlay) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}
		switch ev.Rune() {
		case 'q':
			return false
		case ' ':
			o.paused = !o.paused
		case 'd':
			o.enabled = !o.enabled
			if !o.enabled {
				o.ticker.ClearAll()
			}
		}

	case *tcell.EventResize:
		o.handleResize()
	}
	return true
}

func (o *overlay) draw() {
	o.screen.Clear()
	o.render.Draw(o.renderer)

	status := fmt.Sprintf(" video %5.1fs  active %3d  placed %d  dropped %d  %s  [space] pause  [d] toggle  [q] quit",
		float64(o.videoNanos)/float64(time.Second), o.ticker.ActiveCount(), o.placed, o.dropped, o.state())
	_, rows := o.screen.Size()
	o.renderer.drawString(0, rows-1, status, tcell.StyleDefault.Reverse(true))
	o.screen.Show()
}

func (o *overlay) state() string {
	switch {
	case o.paused:
		return "paused "
	case !o.enabled:
		return "hidden "
	default:
		return "playing"
	}
}

// pollEvents 在后台读取终端事件。屏幕关闭或 quit 关闭后停止，并关闭返回的 channel
func pollEvents(screen tcell.Screen, quit <-chan struct{}) <-chan tcell.Event {
	events := make(chan tcell.Event, 100)
	go func() {
		defer close(events)
		for {
			// Fini 之后 PollEvent 返回 nil
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()
	return events
}

func (o *overlay) run() {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	quit := make(chan struct{})
	defer close(quit)
	eventChan := pollEvents(o.screen, quit)

	for {
		select {
		case ev, ok := <-eventChan:
			if !ok || !o.handleInput(ev) {
				return
			}

		case now := <-ticker.C:
			o.update(now)
			o.draw()
		}
	}
}

func main() {
	flag.Parse()

	log.SetOutput(io.Discard)
	if *logPath != "" {
		logFile, err := os.Create(*logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer logFile.Close()
		log.SetOutput(logFile)
	}

	cfg, err := config.LoadDanmakuConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	script, err := game.LoadCommentScript(*scriptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load script: %v\n", err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	newOverlay(screen, terminalConfig(cfg), script).run()
}
