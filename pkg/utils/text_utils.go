package utils

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// SanitizeDanmakuText 把弹幕文本整理成单行
//
// 换行和制表符替换为空格，首尾空白去掉。
func SanitizeDanmakuText(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// MeasureCellWidth 测量文本在终端中占用的列数，宽字符占两列
func MeasureCellWidth(textStr string) int {
	return runewidth.StringWidth(textStr)
}
