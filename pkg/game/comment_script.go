package game

import (
	"cmp"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gonewx/danmaku/pkg/danmaku"
	"github.com/gonewx/danmaku/pkg/utils"
	"gopkg.in/yaml.v3"
)

// defaultDanmakuColor 未指定颜色时使用白色
const defaultDanmakuColor uint32 = 0xFFFFFF

// ScriptEntry 弹幕脚本中的一条弹幕
type ScriptEntry struct {
	Time     int64  `yaml:"time"`     // 出现时间（视频毫秒）
	Text     string `yaml:"text"`     // 文本内容
	Location string `yaml:"location"` // normal / top / bottom
	Color    string `yaml:"color"`    // #RRGGBB，可省略
}

// CommentScript 按视频时间排列的弹幕脚本
//
// 代替网络弹幕源，为覆盖层提供已解码的弹幕数据。
type CommentScript struct {
	// Loop 播放到结尾后是否从头开始
	Loop bool `yaml:"loop"`
	// DurationMillis 视频总时长（毫秒），为 0 时取最后一条弹幕的时间
	DurationMillis int64 `yaml:"durationMillis"`
	// Comments 弹幕列表，加载后按时间排序
	Comments []ScriptEntry `yaml:"comments"`
}

// LoadCommentScript 从文件加载弹幕脚本
func LoadCommentScript(path string) (*CommentScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read comment script %s: %w", path, err)
	}
	return ParseCommentScript(data)
}

// ParseCommentScript 解析 YAML 弹幕脚本
//
// 返回的脚本按 Time 稳定排序，时间相同的弹幕保持文件中的顺序。
func ParseCommentScript(data []byte) (*CommentScript, error) {
	var script CommentScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("failed to parse comment script: %w", err)
	}

	for i, entry := range script.Comments {
		if entry.Time < 0 {
			return nil, fmt.Errorf("comment %d: time must be non-negative, got %d", i, entry.Time)
		}
		if strings.TrimSpace(entry.Text) == "" {
			return nil, fmt.Errorf("comment %d: text is required", i)
		}
		if _, err := parseColor(entry.Color); err != nil {
			return nil, fmt.Errorf("comment %d: %w", i, err)
		}
	}

	slices.SortStableFunc(script.Comments, func(a, b ScriptEntry) int {
		return cmp.Compare(a.Time, b.Time)
	})

	if script.DurationMillis == 0 && len(script.Comments) > 0 {
		script.DurationMillis = script.Comments[len(script.Comments)-1].Time
	}
	return &script, nil
}

// parseColor 解析 #RRGGBB 颜色，空字符串返回白色
func parseColor(s string) (uint32, error) {
	if s == "" {
		return defaultDanmakuColor, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return 0, fmt.Errorf("invalid color %q: expected #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return uint32(v), nil
}

// WidthFunc 测量文本宽度的函数，由渲染后端提供
type WidthFunc func(text string) int

// ScriptPlayer 按视频时间回放弹幕脚本
type ScriptPlayer struct {
	script  *CommentScript
	measure WidthFunc
	cursor  int
}

// NewScriptPlayer 创建脚本播放器
//
// 参数:
//   - script: 已排序的弹幕脚本
//   - measure: 文本宽度测量函数
func NewScriptPlayer(script *CommentScript, measure WidthFunc) *ScriptPlayer {
	return &ScriptPlayer{
		script:  script,
		measure: measure,
	}
}

// Due 返回出现时间不晚于 videoMillis 且尚未返回过的弹幕
//
// 文本整理成单行后再测量，宽度不是正数的弹幕（例如全是零宽字符）会被跳过。
func (p *ScriptPlayer) Due(videoMillis int64) []*danmaku.Danmaku {
	var due []*danmaku.Danmaku
	for p.cursor < len(p.script.Comments) && p.script.Comments[p.cursor].Time <= videoMillis {
		entry := p.script.Comments[p.cursor]
		index := p.cursor
		p.cursor++

		text := utils.SanitizeDanmakuText(entry.Text)
		width := p.measure(text)
		if width <= 0 {
			continue
		}
		color, _ := parseColor(entry.Color)
		due = append(due, &danmaku.Danmaku{
			ID:        strconv.Itoa(index),
			Text:      text,
			Location:  danmaku.ParseLocation(entry.Location),
			Color:     color,
			Width:     width,
			VideoTime: entry.Time,
		})
	}
	return due
}

// Seek 跳转到 videoMillis，之后的 Due 从第一条不早于该时间的弹幕开始
func (p *ScriptPlayer) Seek(videoMillis int64) {
	p.cursor, _ = slices.BinarySearchFunc(p.script.Comments, videoMillis, func(e ScriptEntry, t int64) int {
		return cmp.Compare(e.Time, t)
	})
}

// Finished 是否已经播放到脚本结尾
func (p *ScriptPlayer) Finished(videoMillis int64) bool {
	return p.cursor >= len(p.script.Comments) && videoMillis >= p.script.DurationMillis
}

// Loop 脚本是否循环播放
func (p *ScriptPlayer) Loop() bool {
	return p.script.Loop
}

// PlaceFrameTime 把弹幕的视频时间换算为帧时间
//
// 参数:
//   - frameNanos: 当前帧时间
//   - videoMillis: 当前视频时间
//   - danmakuVideoMillis: 弹幕出现的视频时间
//
// 返回:
//   - int64: 弹幕迟到时返回过去的帧时间，使同一帧到达的弹幕按各自的视频时间错开；
//     没有迟到或换算结果早于帧时钟起点时返回 danmaku.NotPlaced
func PlaceFrameTime(frameNanos, videoMillis, danmakuVideoMillis int64) int64 {
	late := time.Duration(videoMillis-danmakuVideoMillis) * time.Millisecond
	placeTime := frameNanos - int64(late)
	if late <= 0 || placeTime < 0 {
		return danmaku.NotPlaced
	}
	return placeTime
}
