// Package danmaku 实现弹幕轨道的放置与碰撞引擎
//
// 引擎只负责两类轨道：
//   - FixedTrack: 顶部/底部固定弹幕，一次只显示一条，最多排队一条
//   - FloatingTrack: 从右向左滚动的弹幕，按解析式碰撞检测保证永不重叠
//
// 引擎不做任何 I/O、文字排版或绘制。调用方每帧推进帧时钟，
// 依次调用各轨道的 Tick()，再放置新弹幕，最后遍历轨道读取位置交给渲染后端。
//
// 并发模型：单线程、单写者。所有方法都不加锁，
// 调用方必须把同一条轨道的所有访问限制在渲染循环所在的 goroutine 中。
package danmaku

import (
	"errors"
	"fmt"
	"math"
)

// NotPlaced 表示"在当前帧放置"的哨兵放置时间
const NotPlaced int64 = math.MinInt64

var (
	// ErrInvalidPlaceTime 放置时间既不是 NotPlaced 也不是非负数
	ErrInvalidPlaceTime = errors.New("danmaku: invalid place frame time")
	// ErrInvalidWidth 弹幕宽度不是正数
	ErrInvalidWidth = errors.New("danmaku: danmaku width must be positive")
	// ErrIteratorExhausted 迭代器已经没有元素
	ErrIteratorExhausted = errors.New("danmaku: iterator exhausted")
)

// Location 弹幕显示位置
type Location int

const (
	// LocationNormal 滚动弹幕
	LocationNormal Location = iota
	// LocationTop 顶部固定弹幕
	LocationTop
	// LocationBottom 底部固定弹幕
	LocationBottom
)

// String 返回位置的字符串表示（与配置文件中的写法一致）
func (l Location) String() string {
	switch l {
	case LocationTop:
		return "top"
	case LocationBottom:
		return "bottom"
	default:
		return "normal"
	}
}

// ParseLocation 解析位置字符串，未知值按滚动弹幕处理
func ParseLocation(s string) Location {
	switch s {
	case "top":
		return LocationTop
	case "bottom":
		return LocationBottom
	default:
		return LocationNormal
	}
}

// SizeSpecified 已经完成测量的弹幕
//
// 轨道只关心弹幕的像素宽度，其余内容原样交还给渲染后端。
type SizeSpecified interface {
	DanmakuWidth() int
}

// Danmaku 一条已解码并测量过宽度的弹幕
type Danmaku struct {
	ID        string   // 弹幕唯一标识
	Text      string   // 文本内容
	Location  Location // 显示位置
	Color     uint32   // 颜色 0xRRGGBB
	Width     int      // 测量得到的像素宽度，必须为正数
	VideoTime int64    // 在视频中的出现时间（毫秒）
}

// DanmakuWidth 实现 SizeSpecified
func (d *Danmaku) DanmakuWidth() int {
	return d.Width
}

// FrameClock 帧时钟
//
// 每个渲染帧更新一次，返回单调不减的纳秒时间。
type FrameClock interface {
	FrameTimeNanos() int64
}

// TrackGeometry 轨道尺寸状态
//
// 每次计算都会重新读取，窗口缩放后立即对后续的放置和位置计算生效。
type TrackGeometry interface {
	// TrackHeight 单条轨道高度（像素）
	TrackHeight() int
	// TrackWidth 轨道宽度（像素），只有滚动轨道使用
	TrackWidth() int
	// HostHeight 宿主区域高度（像素），底部固定轨道使用
	HostHeight() int
}

func checkPlaceTime(placeFrameTimeNanos int64) {
	if placeFrameTimeNanos != NotPlaced && placeFrameTimeNanos < 0 {
		panic(fmt.Errorf("%w: expected NotPlaced or non-negative, got %d", ErrInvalidPlaceTime, placeFrameTimeNanos))
	}
}

func checkWidth(width int) {
	if width <= 0 {
		panic(fmt.Errorf("%w: got %d", ErrInvalidWidth, width))
	}
}

// resolvePlaceTime 把哨兵放置时间换算成当前帧时间
func resolvePlaceTime(placeFrameTimeNanos, now int64) int64 {
	if placeFrameTimeNanos == NotPlaced {
		return now
	}
	return placeFrameTimeNanos
}
