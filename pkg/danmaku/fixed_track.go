package danmaku

import (
	"fmt"
	"iter"
	"time"
)

// FixedTrack 顶部或底部固定弹幕轨道
//
// 轨道中的弹幕在以下情况会移除:
//   - Tick 中显示时间达到 durationMillis
//   - Place 覆盖了正在显示的弹幕
//   - 调用 ClearAll
//
// 轨道最多同时持有一条正在显示的弹幕和一条等待显示的弹幕。
type FixedTrack[T SizeSpecified] struct {
	trackIndex     int
	fromBottom     bool
	clock          FrameClock
	geometry       TrackGeometry
	durationMillis int64

	current    *FixedDanmaku[T]
	pending    T
	hasPending bool
}

// NewFixedTrack 创建固定弹幕轨道
//
// 参数:
//   - trackIndex: 轨道序号，从 0 开始；底部轨道从屏幕底部往上数
//   - fromBottom: 是否为底部轨道
//   - clock: 帧时钟
//   - geometry: 轨道尺寸状态
//   - durationMillis: 每条弹幕的显示时长（毫秒）
func NewFixedTrack[T SizeSpecified](
	trackIndex int,
	fromBottom bool,
	clock FrameClock,
	geometry TrackGeometry,
	durationMillis int64,
) *FixedTrack[T] {
	return &FixedTrack[T]{
		trackIndex:     trackIndex,
		fromBottom:     fromBottom,
		clock:          clock,
		geometry:       geometry,
		durationMillis: durationMillis,
	}
}

// TrackIndex 轨道序号
func (t *FixedTrack[T]) TrackIndex() int { return t.trackIndex }

// FromBottom 是否为底部轨道
func (t *FixedTrack[T]) FromBottom() bool { return t.fromBottom }

func (t *FixedTrack[T]) durationNanos() int64 {
	return t.durationMillis * int64(time.Millisecond)
}

// Current 正在显示的弹幕
func (t *FixedTrack[T]) Current() *FixedDanmaku[T] {
	return t.current
}

// Pending 等待显示的弹幕
func (t *FixedTrack[T]) Pending() (T, bool) {
	return t.pending, t.hasPending
}

// CanPlace 当前有正在显示或等待显示的弹幕时一定不能放置。
// 指定了放置时间的弹幕，如果按帧时钟计算已经显示完毕，也不能放置。
func (t *FixedTrack[T]) CanPlace(danmaku T, placeFrameTimeNanos int64) bool {
	checkPlaceTime(placeFrameTimeNanos)
	if t.current != nil || t.hasPending {
		return false
	}
	if placeFrameTimeNanos == NotPlaced {
		return true
	}
	return t.clock.FrameTimeNanos()-placeFrameTimeNanos < t.durationNanos()
}

// TryPlace 检测并放置
func (t *FixedTrack[T]) TryPlace(danmaku T, placeFrameTimeNanos int64) (*FixedDanmaku[T], bool) {
	if !t.CanPlace(danmaku, placeFrameTimeNanos) {
		return nil, false
	}
	return t.Place(danmaku, placeFrameTimeNanos), true
}

// Place 放置弹幕并覆盖正在显示的弹幕，不检查容量
func (t *FixedTrack[T]) Place(danmaku T, placeFrameTimeNanos int64) *FixedDanmaku[T] {
	checkPlaceTime(placeFrameTimeNanos)
	checkWidth(danmaku.DanmakuWidth())
	upcoming := &FixedDanmaku[T]{
		Danmaku:             danmaku,
		PlaceFrameTimeNanos: resolvePlaceTime(placeFrameTimeNanos, t.clock.FrameTimeNanos()),
		track:               t,
	}
	t.current = upcoming
	return upcoming
}

// SetPending 设置等待显示的弹幕，当前弹幕显示完后显示这条弹幕。
//
// 如果已经有等待显示的弹幕，它会立刻替换正在显示的弹幕，并作为返回值返回；
// 否则返回 nil。
func (t *FixedTrack[T]) SetPending(danmaku T) *FixedDanmaku[T] {
	checkWidth(danmaku.DanmakuWidth())
	var displaced *FixedDanmaku[T]
	if t.hasPending {
		displaced = t.Place(t.pending, NotPlaced)
	}
	t.pending = danmaku
	t.hasPending = true
	return displaced
}

// Tick 移除显示时间已满的弹幕，并把等待显示的弹幕提升为正在显示
//
// 帧时钟回退时弹幕的显示时间按 0 计算。
func (t *FixedTrack[T]) Tick() {
	now := t.clock.FrameTimeNanos()
	if t.current != nil {
		if elapsedNanos(now, t.current.PlaceFrameTimeNanos) < t.durationNanos() {
			return
		}
		t.current = nil
	}
	if t.hasPending {
		pending := t.pending
		t.clearPending()
		t.Place(pending, NotPlaced)
	}
}

// ClearAll 清除正在显示的弹幕，等待显示的弹幕不受影响
func (t *FixedTrack[T]) ClearAll() {
	t.current = nil
}

// Len 正在显示的弹幕数量（0 或 1）
func (t *FixedTrack[T]) Len() int {
	if t.current == nil {
		return 0
	}
	return 1
}

// All 实现 Track
func (t *FixedTrack[T]) All() iter.Seq[*FixedDanmaku[T]] {
	return func(yield func(*FixedDanmaku[T]) bool) {
		if t.current != nil {
			yield(t.current)
		}
	}
}

// Iterator 返回最多产出一条弹幕的迭代器
func (t *FixedTrack[T]) Iterator() *Iterator[*FixedDanmaku[T]] {
	hasNext := t.current != nil
	return &Iterator[*FixedDanmaku[T]]{
		hasNext: func() bool { return hasNext && t.current != nil },
		next: func() *FixedDanmaku[T] {
			hasNext = false
			return t.current
		},
	}
}

// ClearPending 丢弃等待显示的弹幕，正在显示的弹幕不受影响
func (t *FixedTrack[T]) ClearPending() {
	t.clearPending()
}

func (t *FixedTrack[T]) clearPending() {
	var zero T
	t.pending = zero
	t.hasPending = false
}

func (t *FixedTrack[T]) String() string {
	placeTime := "none"
	if t.current != nil {
		placeTime = fmt.Sprintf("%dms", t.current.PlaceFrameTimeNanos/int64(time.Millisecond))
	}
	return fmt.Sprintf("FixedTrack(index=%d, placeTime=%s)", t.trackIndex, placeTime)
}

// FixedDanmaku 一条固定弹幕的放置记录
type FixedDanmaku[T SizeSpecified] struct {
	Danmaku             T
	PlaceFrameTimeNanos int64

	track *FixedTrack[T]
}

// TrackIndex 所属轨道序号
func (d *FixedDanmaku[T]) TrackIndex() int { return d.track.trackIndex }

// FromBottom 是否为底部弹幕
func (d *FixedDanmaku[T]) FromBottom() bool { return d.track.fromBottom }

// Y 弹幕在宿主区域中的纵坐标，每次读取时按当前轨道尺寸计算
func (d *FixedDanmaku[T]) Y() float64 {
	trackHeight := float64(d.track.geometry.TrackHeight())
	if d.track.fromBottom {
		return float64(d.track.geometry.HostHeight()) - float64(d.track.trackIndex+1)*trackHeight
	}
	return float64(d.track.trackIndex) * trackHeight
}

// X 弹幕水平居中时的横坐标
func (d *FixedDanmaku[T]) X() float64 {
	return (float64(d.track.geometry.TrackWidth()) - float64(d.Danmaku.DanmakuWidth())) / 2
}

func (d *FixedDanmaku[T]) String() string {
	return fmt.Sprintf("FixedDanmaku(width=%d, y=%.1f)", d.Danmaku.DanmakuWidth(), d.Y())
}

func elapsedNanos(now, since int64) int64 {
	if now < since {
		return 0
	}
	return now - since
}
