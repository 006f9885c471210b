package game

import "time"

// FrameClock 弹幕引擎使用的帧时钟
//
// 每个渲染帧推进一次，时间单调不减。暂停时调用方不推进时钟，弹幕随之静止。
type FrameClock struct {
	nanos int64
}

// NewFrameClock 创建从 0 开始的帧时钟
func NewFrameClock() *FrameClock {
	return &FrameClock{}
}

// FrameTimeNanos 当前帧时间（纳秒）
func (c *FrameClock) FrameTimeNanos() int64 {
	return c.nanos
}

// Advance 推进时钟，负数被忽略
func (c *FrameClock) Advance(d time.Duration) {
	if d > 0 {
		c.nanos += int64(d)
	}
}

// TrackLayout 宿主区域和轨道尺寸
//
// 实现 danmaku.TrackGeometry。窗口缩放时调用 Resize，轨道在下一次计算时读取新尺寸。
type TrackLayout struct {
	hostWidth   int
	hostHeight  int
	trackHeight int
}

// NewTrackLayout 创建轨道尺寸状态
func NewTrackLayout(hostWidth, hostHeight, trackHeight int) *TrackLayout {
	return &TrackLayout{
		hostWidth:   hostWidth,
		hostHeight:  hostHeight,
		trackHeight: trackHeight,
	}
}

// TrackHeight 单条轨道高度
func (l *TrackLayout) TrackHeight() int { return l.trackHeight }

// TrackWidth 轨道宽度，等于宿主宽度
func (l *TrackLayout) TrackWidth() int { return l.hostWidth }

// HostHeight 宿主高度
func (l *TrackLayout) HostHeight() int { return l.hostHeight }

// HostWidth 宿主宽度
func (l *TrackLayout) HostWidth() int { return l.hostWidth }

// Resize 更新宿主尺寸，尺寸有变化时返回 true
func (l *TrackLayout) Resize(hostWidth, hostHeight int) bool {
	if l.hostWidth == hostWidth && l.hostHeight == hostHeight {
		return false
	}
	l.hostWidth = hostWidth
	l.hostHeight = hostHeight
	return true
}
