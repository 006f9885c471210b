package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/gonewx/danmaku/pkg/app"
	"github.com/gonewx/danmaku/pkg/config"
	"github.com/gonewx/danmaku/pkg/embedded"
)

var (
	verbose    = flag.Bool("verbose", false, "显示详细调试信息")
	configPath = flag.String("config", "", "轨道配置文件路径（默认使用内置配置）")
	scriptPath = flag.String("script", "", "弹幕脚本文件路径（默认使用内置演示脚本）")
	fontPath   = flag.String("font", "", "字体文件路径（默认使用内置位图字体，仅支持 ASCII）")
)

func main() {
	flag.Parse()

	// 初始化嵌入数据
	// dataFS 在 embed.go 中声明
	embedded.Init(dataFS)

	overlay, err := app.NewApp(app.Config{
		Verbose:    *verbose,
		ConfigPath: *configPath,
		ScriptPath: *scriptPath,
		FontPath:   *fontPath,
	})
	if err != nil {
		// 非 verbose 模式下 log 输出已关闭
		fmt.Fprintf(os.Stderr, "覆盖层初始化失败: %v\n", err)
		os.Exit(1)
	}

	ebiten.SetWindowSize(config.OverlayWindowWidth, config.OverlayWindowHeight)
	ebiten.SetWindowTitle("Danmaku Overlay")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	// 透明窗口，叠加在视频播放器上方
	if err := ebiten.RunGameWithOptions(overlay, &ebiten.RunGameOptions{
		ScreenTransparent: true,
	}); err != nil {
		log.Fatal(err)
	}
}
