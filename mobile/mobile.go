//go:build mobile

// Package mobile 提供 ebitenmobile 绑定入口
//
// 此包用于构建 Android (.aar) 和 iOS (.xcframework) 包，
// 让弹幕覆盖层可以嵌入移动端播放器。
// 使用 ebitenmobile 工具构建时会自动调用 init() 函数。
//
// 此文件仅在使用 -tags mobile 构建时编译：
//
//	# Android
//	cp -r data mobile/ && ebitenmobile bind -target android -tags mobile -androidapi 23 -javapkg com.gonewx.danmaku -o build/android/danmaku.aar -v ./mobile
//
//	# iOS (仅 macOS)
//	cp -r data mobile/ && ebitenmobile bind -target ios -tags mobile -o build/ios/Danmaku.xcframework -v ./mobile
package mobile

import (
	"log"

	"github.com/hajimehoshi/ebiten/v2/mobile"

	"github.com/gonewx/danmaku/pkg/app"
	"github.com/gonewx/danmaku/pkg/embedded"
)

func init() {
	// 初始化嵌入数据
	// dataFS 在 embed.go 中声明
	embedded.Init(dataFS)

	// 使用内置配置和演示脚本
	overlay, err := app.NewApp(app.Config{
		Verbose: true,
	})
	if err != nil {
		log.Fatalf("覆盖层初始化失败: %v", err)
	}

	// 注册到 ebitenmobile
	mobile.SetGame(overlay)
}

// Dummy 是一个空导出函数，确保包被 ebitenmobile 正确识别
func Dummy() {}
