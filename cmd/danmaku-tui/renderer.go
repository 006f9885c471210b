package main

import (
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/gonewx/danmaku/pkg/danmaku"
)

// cellRenderer 把弹幕绘制到终端单元格
type cellRenderer struct {
	screen tcell.Screen
}

func newCellRenderer(screen tcell.Screen) *cellRenderer {
	return &cellRenderer{screen: screen}
}

// DrawDanmaku 按弹幕颜色绘制一行文本，超出屏幕的部分被裁掉
func (r *cellRenderer) DrawDanmaku(d *danmaku.Danmaku, x, y float64) {
	style := tcell.StyleDefault.Foreground(tcell.NewHexColor(int32(d.Color)))
	r.drawString(int(math.Round(x)), int(y), d.Text, style)
}

// drawString 从 (x, y) 开始绘制，宽字符占两列
func (r *cellRenderer) drawString(x, y int, s string, style tcell.Style) {
	cols, rows := r.screen.Size()
	if y < 0 || y >= rows {
		return
	}
	for _, ch := range s {
		w := runewidth.RuneWidth(ch)
		if w == 0 {
			continue
		}
		// 宽字符只绘制完整落在屏幕内的部分
		if x >= 0 && x+w <= cols {
			r.screen.SetContent(x, y, ch, nil, style)
		}
		x += w
		if x >= cols {
			return
		}
	}
}
