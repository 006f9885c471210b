package app

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"

	"github.com/gonewx/danmaku/pkg/danmaku"
	"github.com/gonewx/danmaku/pkg/game"
)

// fontSizeRatio 字号与轨道高度的比例
const fontSizeRatio = 0.75

// shadowColor 文字描边颜色
var shadowColor = color.RGBA{A: 0xff}

// NewDanmakuFace 创建默认的弹幕字体
//
// 使用 x/image 自带的位图字体，不依赖外部字体文件。
func NewDanmakuFace() text.Face {
	return text.NewGoXFace(basicfont.Face7x13)
}

// MeasureTextWidth 测量单行文本的像素宽度
//
// 参数:
//   - textStr: 弹幕文本
//   - face: 字体，nil 时返回 0
//
// 返回:
//   - int: 向上取整后的宽度（像素）
func MeasureTextWidth(textStr string, face text.Face) int {
	if textStr == "" || face == nil {
		return 0
	}
	return int(math.Ceil(text.Advance(textStr, face)))
}

// LoadFace 加载弹幕字体
//
// 参数:
//   - fontPath: 字体文件路径，为空时使用内置位图字体
//   - trackHeight: 轨道高度，决定字号
func LoadFace(fontPath string, trackHeight int) (text.Face, error) {
	if fontPath == "" {
		return NewDanmakuFace(), nil
	}

	fontData, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font %s: %w", fontPath, err)
	}
	source, err := text.NewGoTextFaceSource(bytes.NewReader(fontData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", fontPath, err)
	}
	return &text.GoTextFace{
		Source: source,
		Size:   float64(trackHeight) * fontSizeRatio,
	}, nil
}

// EbitenRenderer 使用 ebiten text/v2 绘制弹幕
//
// 实现 systems.DanmakuRenderer。每帧绘制前调用 Begin 设置目标图像。
type EbitenRenderer struct {
	face    text.Face
	layout  *game.TrackLayout
	screen  *ebiten.Image
	opacity float32
}

// NewEbitenRenderer 创建 ebiten 渲染后端
func NewEbitenRenderer(face text.Face, layout *game.TrackLayout) *EbitenRenderer {
	return &EbitenRenderer{
		face:    face,
		layout:  layout,
		opacity: 1,
	}
}

// Begin 设置本帧的绘制目标
func (r *EbitenRenderer) Begin(screen *ebiten.Image) {
	r.screen = screen
}

// SetOpacity 设置弹幕不透明度 0.0 ~ 1.0
func (r *EbitenRenderer) SetOpacity(opacity float64) {
	r.opacity = float32(opacity)
}

// DrawDanmaku 在轨道中垂直居中绘制一条弹幕，先绘制 1 像素阴影
func (r *EbitenRenderer) DrawDanmaku(d *danmaku.Danmaku, x, y float64) {
	if r.screen == nil || r.opacity <= 0 {
		return
	}

	metrics := r.face.Metrics()
	lineHeight := metrics.HAscent + metrics.HDescent
	y += (float64(r.layout.TrackHeight()) - lineHeight) / 2

	r.drawText(d.Text, x+1, y+1, shadowColor)
	r.drawText(d.Text, x, y, danmakuColor(d.Color))
}

func (r *EbitenRenderer) drawText(s string, x, y float64, c color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	op.ColorScale.ScaleAlpha(r.opacity)
	text.Draw(r.screen, s, r.face, op)
}

// danmakuColor 把 0xRRGGBB 转换为不透明颜色
func danmakuColor(rgb uint32) color.RGBA {
	return color.RGBA{
		R: uint8(rgb >> 16),
		G: uint8(rgb >> 8),
		B: uint8(rgb),
		A: 0xff,
	}
}
