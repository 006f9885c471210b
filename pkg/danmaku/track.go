package danmaku

import "iter"

// Track 弹幕轨道
//
// T 是输入的弹幕类型，D 是轨道创建的放置记录类型。
// 放置记录只属于创建它的轨道，调用方不应修改。
type Track[T SizeSpecified, D any] interface {
	// CanPlace 检测这条弹幕能否以给定放置时间放入轨道，不修改轨道
	CanPlace(danmaku T, placeFrameTimeNanos int64) bool
	// TryPlace 检测并放置，不能放置时返回 false 且不修改轨道
	TryPlace(danmaku T, placeFrameTimeNanos int64) (D, bool)
	// Place 无条件放置，容量由调用方通过 CanPlace 保证
	Place(danmaku T, placeFrameTimeNanos int64) D
	// Tick 逻辑帧，移除过期或已经离开屏幕的弹幕
	Tick()
	// ClearAll 清空轨道
	ClearAll()
	// All 返回当前弹幕的实时视图（不拷贝）
	//
	// 遍历期间不能修改轨道。
	All() iter.Seq[D]
	// Iterator 返回显式迭代器，遍历顺序与 All 相同
	Iterator() *Iterator[D]
	// Len 当前弹幕数量
	Len() int
}

// Iterator 轨道弹幕的显式迭代器
//
// 迭代器不做快照，也不是线程安全的。迭代期间修改轨道的结果未定义。
type Iterator[D any] struct {
	hasNext func() bool
	next    func() D
}

// HasNext 是否还有下一个元素
func (it *Iterator[D]) HasNext() bool {
	return it.hasNext()
}

// Next 返回下一个元素，已经没有元素时 panic（ErrIteratorExhausted）
func (it *Iterator[D]) Next() D {
	if !it.hasNext() {
		panic(ErrIteratorExhausted)
	}
	return it.next()
}

var (
	_ Track[*Danmaku, *FloatingDanmaku[*Danmaku]] = (*FloatingTrack[*Danmaku])(nil)
	_ Track[*Danmaku, *FixedDanmaku[*Danmaku]]    = (*FixedTrack[*Danmaku])(nil)
)
