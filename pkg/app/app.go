// Package app 提供弹幕覆盖层应用的核心包装器
//
// 该包把帧时钟、轨道系统、弹幕脚本和设置组装成一个 ebiten.Game，
// 桌面端通过 main.go 调用 NewApp()。
package app

import (
	"fmt"
	"image/color"
	"io"
	"log"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/quasilyte/gdata/v2"

	"github.com/gonewx/danmaku/pkg/config"
	"github.com/gonewx/danmaku/pkg/danmaku"
	"github.com/gonewx/danmaku/pkg/ecs"
	"github.com/gonewx/danmaku/pkg/embedded"
	"github.com/gonewx/danmaku/pkg/game"
	"github.com/gonewx/danmaku/pkg/systems"
)

const (
	// frameDuration 每个逻辑帧推进的时间，与 ebiten 默认 TPS 一致
	frameDuration = time.Second / 60
	// seekStep 左右方向键跳转的视频时间
	seekStep = 5 * time.Second
	// speedStep 上下方向键调整速度的倍数
	speedStep = 1.25
	// opacityStep -/= 键调整不透明度的步长
	opacityStep = 0.1

	defaultConfigPath = "data/danmaku.yaml"
	defaultScriptPath = "data/comments.yaml"
	storageAppName    = "danmaku_overlay"
)

// Config 定义应用启动配置
type Config struct {
	// Verbose 启用详细日志输出
	Verbose bool
	// ConfigPath 轨道配置文件，为空则使用内置的 data/danmaku.yaml
	ConfigPath string
	// ScriptPath 弹幕脚本文件，为空则使用内置的演示脚本
	ScriptPath string
	// FontPath TrueType/OpenType 字体文件，为空则使用内置位图字体（仅 ASCII）
	FontPath string
}

// App 是弹幕覆盖层的核心包装器，实现 ebiten.Game 接口
type App struct {
	clock     *game.FrameClock
	layout    *game.TrackLayout
	config    *config.DanmakuConfig
	allocator *systems.TrackAllocator
	ticker    *systems.DanmakuTickSystem
	render    *systems.DanmakuRenderSystem
	player    *game.ScriptPlayer
	settings  *game.SettingsManager
	renderer  *EbitenRenderer

	videoNanos int64 // 当前视频时间，暂停时不推进
	paused     bool
	verbose    bool
}

// NewApp 创建并初始化弹幕覆盖层
//
// 调用此函数前，必须先调用 embedded.Init() 初始化嵌入数据。
func NewApp(cfg Config) (*App, error) {
	// 配置日志输出
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
		log.SetFlags(0)
	}

	data, err := readData(cfg.ConfigPath, defaultConfigPath)
	if err != nil {
		return nil, fmt.Errorf("弹幕配置读取失败: %w", err)
	}
	danmakuConfig, err := config.ParseDanmakuConfig(data)
	if err != nil {
		return nil, fmt.Errorf("弹幕配置加载失败: %w", err)
	}

	data, err = readData(cfg.ScriptPath, defaultScriptPath)
	if err != nil {
		return nil, fmt.Errorf("弹幕脚本读取失败: %w", err)
	}
	script, err := game.ParseCommentScript(data)
	if err != nil {
		return nil, fmt.Errorf("弹幕脚本加载失败: %w", err)
	}
	log.Printf("[App] Loaded %d comments (loop=%v, duration=%dms)",
		len(script.Comments), script.Loop, script.DurationMillis)

	face, err := LoadFace(cfg.FontPath, danmakuConfig.TrackHeight)
	if err != nil {
		return nil, fmt.Errorf("字体加载失败: %w", err)
	}

	// 设置存储不可用时降级为仅内存设置
	gdataManager, err := gdata.Open(gdata.Config{AppName: storageAppName})
	if err != nil {
		log.Printf("[App] Warning: gdata unavailable: %v (settings will not persist)", err)
		gdataManager = nil
	}

	clock := game.NewFrameClock()
	layout := game.NewTrackLayout(config.OverlayWindowWidth, config.OverlayWindowHeight, danmakuConfig.TrackHeight)
	em := ecs.NewEntityManager()

	allocator := systems.NewTrackAllocator(em, clock, layout, danmakuConfig, nil)
	allocator.InitializeTracks()

	a := &App{
		clock:     clock,
		layout:    layout,
		config:    danmakuConfig,
		allocator: allocator,
		ticker:    systems.NewDanmakuTickSystem(em),
		render:    systems.NewDanmakuRenderSystem(em),
		player: game.NewScriptPlayer(script, func(s string) int {
			return MeasureTextWidth(s, face)
		}),
		settings: game.NewSettingsManager(gdataManager),
		renderer: NewEbitenRenderer(face, layout),
		verbose:  cfg.Verbose,
	}
	a.applySettings()
	return a, nil
}

// readData 优先读取磁盘上的文件，path 为空时读取内置数据
func readData(path, embeddedPath string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return embedded.ReadFile(embeddedPath)
}

// Update 更新覆盖层逻辑
// 每个 tick 调用一次（通常每秒 60 次）
//
// 顺序固定为：推进帧时钟、轨道逻辑帧、放置新到达的弹幕。
func (a *App) Update() error {
	a.handleInput()

	if !a.paused {
		a.clock.Advance(frameDuration)
		a.videoNanos += int64(frameDuration)
	}
	a.ticker.Update()

	videoMillis := a.videoMillis()
	if a.player.Finished(videoMillis) && a.player.Loop() {
		log.Printf("[App] Script finished at %dms, looping", videoMillis)
		a.seek(0)
		videoMillis = 0
	}

	due := a.player.Due(videoMillis)
	if !a.settings.GetSettings().Enabled {
		return nil
	}
	for _, d := range due {
		result := a.allocator.Dispatch(d, a.placeTimeFor(d, videoMillis))
		if result != systems.DispatchPlaced {
			log.Printf("[App] Danmaku %s %q %v", d.ID, d.Text, result)
		}
	}
	return nil
}

func (a *App) placeTimeFor(d *danmaku.Danmaku, videoMillis int64) int64 {
	return game.PlaceFrameTime(a.clock.FrameTimeNanos(), videoMillis, d.VideoTime)
}

func (a *App) videoMillis() int64 {
	return time.Duration(a.videoNanos).Milliseconds()
}

// seek 跳转视频时间，清空屏幕上所有弹幕
func (a *App) seek(videoMillis int64) {
	videoMillis = max(videoMillis, 0)
	a.videoNanos = int64(time.Duration(videoMillis) * time.Millisecond)
	a.ticker.ClearAll()
	a.player.Seek(videoMillis)
}

// handleInput 处理键盘快捷键
func (a *App) handleInput() {
	settingsChanged := false

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		a.paused = !a.paused
		log.Printf("[App] Paused: %v", a.paused)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft):
		a.seek(a.videoMillis() - seekStep.Milliseconds())
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowRight):
		a.seek(a.videoMillis() + seekStep.Milliseconds())
	case inpututil.IsKeyJustPressed(ebiten.KeyF11):
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}

	settings := a.settings.GetSettings()
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyD):
		a.settings.SetEnabled(!settings.Enabled)
		if !settings.Enabled {
			a.ticker.ClearAll()
		}
		settingsChanged = true
	case inpututil.IsKeyJustPressed(ebiten.KeyT):
		a.settings.SetShowTop(!settings.ShowTop)
		settingsChanged = true
	case inpututil.IsKeyJustPressed(ebiten.KeyB):
		a.settings.SetShowBottom(!settings.ShowBottom)
		settingsChanged = true
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp):
		a.settings.SetSpeedScale(settings.SpeedScale * speedStep)
		settingsChanged = true
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown):
		a.settings.SetSpeedScale(settings.SpeedScale / speedStep)
		settingsChanged = true
	case inpututil.IsKeyJustPressed(ebiten.KeyEqual):
		a.settings.SetOpacity(settings.Opacity + opacityStep)
		settingsChanged = true
	case inpututil.IsKeyJustPressed(ebiten.KeyMinus):
		a.settings.SetOpacity(settings.Opacity - opacityStep)
		settingsChanged = true
	}

	if !settingsChanged {
		return
	}
	a.applySettings()
	if err := a.settings.Save(); err != nil {
		log.Printf("[App] Warning: Failed to save settings: %v", err)
	}
}

// applySettings 把当前设置同步到轨道系统和渲染器
func (a *App) applySettings() {
	settings := a.settings.GetSettings()
	a.allocator.SetSpeedScale(settings.SpeedScale)
	a.render.SetVisibility(true, settings.ShowTop, settings.ShowBottom)
	a.renderer.SetOpacity(settings.Opacity)
}

// Draw 绘制覆盖层
// 每帧调用一次
func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(color.Transparent)

	if a.settings.GetSettings().Enabled {
		a.renderer.Begin(screen)
		a.render.Draw(a.renderer)
	}

	if a.verbose {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("video %.1fs  active %d  tracks %d  paused %v  TPS %.0f",
			float64(a.videoNanos)/float64(time.Second), a.ticker.ActiveCount(),
			a.allocator.FloatingTrackCount(), a.paused, ebiten.ActualTPS()))
	}
}

// Layout 返回覆盖层的逻辑尺寸
// 覆盖层与窗口一比一，窗口尺寸变化时同步调整轨道数量
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	// 窗口最小化时保持原有轨道
	if outsideWidth <= 0 || outsideHeight <= 0 {
		return a.layout.HostWidth(), a.layout.HostHeight()
	}
	if a.layout.Resize(outsideWidth, outsideHeight) {
		a.allocator.OnResize()
	}
	return a.layout.HostWidth(), a.layout.HostHeight()
}
