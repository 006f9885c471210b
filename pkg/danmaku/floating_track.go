package danmaku

import (
	"cmp"
	"fmt"
	"iter"
	"math"
	"math/rand/v2"
	"slices"
	"time"
)

// DefaultSpeedFluctuation 默认的弹幕速度随机波动范围
const DefaultSpeedFluctuation = 0.0875

// FloatingTrackConfig 滚动轨道参数
type FloatingTrackConfig struct {
	// BaseSpeedPxPerSecond 基础滚动速度（像素/秒）
	BaseSpeedPxPerSecond float64
	// SafeSeparation 两条弹幕之间的最小间隔（像素）
	SafeSeparation float64
	// BaseSpeedTextWidth 基础文本宽度。宽度大于它的弹幕才会加速，等于它的弹幕速度为 1 倍基础速度
	BaseSpeedTextWidth int
	// SpeedMultiplier 弹幕宽度为 2 倍 BaseSpeedTextWidth 时的速度倍率
	SpeedMultiplier float64
	// RandomizeSpeedFluctuation 速度随机波动范围 θ。
	// 对于按宽度计算出的倍率 α，最终倍率为 [α-θ, α+θ] 之间的随机值；为 0 时不波动
	RandomizeSpeedFluctuation float64
	// Rand 速度波动的随机源，nil 时使用全局随机源。测试中应传入固定种子
	Rand *rand.Rand
}

// DefaultFloatingTrackConfig 返回默认的滚动轨道参数
func DefaultFloatingTrackConfig() FloatingTrackConfig {
	return FloatingTrackConfig{
		BaseSpeedPxPerSecond:      200,
		SafeSeparation:            48,
		BaseSpeedTextWidth:        270,
		SpeedMultiplier:           1.14,
		RandomizeSpeedFluctuation: DefaultSpeedFluctuation,
	}
}

// FloatingTrack 滚动弹幕轨道
//
// 轨道中的弹幕在以下情况会移除:
//   - Tick 中检测到弹幕右侧已经越过轨道左侧
//   - 调用 ClearAll
//
// danmakuList 按 Left() 升序排列（即按已滚动距离降序，最新放置的在最后）。
// 放置时保证新弹幕在剩余的生命周期内不会与前后相邻的弹幕重叠。
// 同一轨道内所有弹幕共用基础速度，SetSpeed 只按比例改变各弹幕的速度，
// 撞车检测只依赖速度倍率，所以之后的帧不需要重新检测。
type FloatingTrack[T SizeSpecified] struct {
	trackIndex int
	clock      FrameClock
	geometry   TrackGeometry
	config     FloatingTrackConfig

	danmakuList []*FloatingDanmaku[T]
}

// NewFloatingTrack 创建滚动弹幕轨道
//
// 参数:
//   - trackIndex: 轨道序号，从 0 开始
//   - clock: 帧时钟
//   - geometry: 轨道尺寸状态
//   - config: 速度参数
func NewFloatingTrack[T SizeSpecified](
	trackIndex int,
	clock FrameClock,
	geometry TrackGeometry,
	config FloatingTrackConfig,
) *FloatingTrack[T] {
	if config.BaseSpeedTextWidth <= 0 {
		config.BaseSpeedTextWidth = 1
	}
	return &FloatingTrack[T]{
		trackIndex:  trackIndex,
		clock:       clock,
		geometry:    geometry,
		config:      config,
		danmakuList: make([]*FloatingDanmaku[T], 0, 16),
	}
}

// TrackIndex 轨道序号
func (t *FloatingTrack[T]) TrackIndex() int { return t.trackIndex }

// SetSpeed 修改基础速度。
//
// 已放置的弹幕从当前位置开始按新速度滚动，已滚动距离保持不变
func (t *FloatingTrack[T]) SetSpeed(baseSpeedPxPerSecond float64) {
	now := t.clock.FrameTimeNanos()
	for _, d := range t.danmakuList {
		d.rebase(now)
	}
	t.config.BaseSpeedPxPerSecond = baseSpeedPxPerSecond
}

// CanPlace 检测是否可以放置这条弹幕。无论如何弹幕都不可以放到轨道长度之外
func (t *FloatingTrack[T]) CanPlace(danmaku T, placeFrameTimeNanos int64) bool {
	_, _, ok := t.checkPlaceable(danmaku, placeFrameTimeNanos)
	return ok
}

// TryPlace 检测并放置，不能放置时不修改轨道
func (t *FloatingTrack[T]) TryPlace(danmaku T, placeFrameTimeNanos int64) (*FloatingDanmaku[T], bool) {
	upcoming, insertionIndex, ok := t.checkPlaceable(danmaku, placeFrameTimeNanos)
	if !ok {
		return nil, false
	}
	t.danmakuList = slices.Insert(t.danmakuList, insertionIndex, upcoming)
	return upcoming, true
}

// Place 无条件放置。调用方已经通过 CanPlace 确认过容量。
//
// 即使检测到重叠也会插入，插入位置仍然保持 danmakuList 有序。
func (t *FloatingTrack[T]) Place(danmaku T, placeFrameTimeNanos int64) *FloatingDanmaku[T] {
	checkPlaceTime(placeFrameTimeNanos)
	upcoming := t.createFloating(danmaku, placeFrameTimeNanos)

	insertionIndex := upcoming.nonOverlappingIndex(t.danmakuList)
	if insertionIndex < 0 {
		insertionIndex = sortedIndex(t.danmakuList, upcoming.Left())
	}
	t.danmakuList = slices.Insert(t.danmakuList, insertionIndex, upcoming)
	return upcoming
}

// ClearAll 清空轨道
func (t *FloatingTrack[T]) ClearAll() {
	clear(t.danmakuList)
	t.danmakuList = t.danmakuList[:0]
}

// Tick 一次遍历移除所有已经离开屏幕的弹幕，保留其余弹幕的顺序
func (t *FloatingTrack[T]) Tick() {
	if len(t.danmakuList) == 0 {
		return
	}
	t.danmakuList = slices.DeleteFunc(t.danmakuList, (*FloatingDanmaku[T]).IsGone)
}

// Last 获取最后一条弹幕（最新放置、滚动距离最小的弹幕）
func (t *FloatingTrack[T]) Last() *FloatingDanmaku[T] {
	if len(t.danmakuList) == 0 {
		return nil
	}
	return t.danmakuList[len(t.danmakuList)-1]
}

// Len 当前弹幕数量
func (t *FloatingTrack[T]) Len() int {
	return len(t.danmakuList)
}

// All 返回当前弹幕的实时视图
//
// 这里用于每帧渲染，不创建 danmakuList 的拷贝，遍历期间不能修改轨道。
func (t *FloatingTrack[T]) All() iter.Seq[*FloatingDanmaku[T]] {
	return func(yield func(*FloatingDanmaku[T]) bool) {
		for _, d := range t.danmakuList {
			if !yield(d) {
				return
			}
		}
	}
}

// Iterator 返回按 Left() 升序遍历的实时迭代器
func (t *FloatingTrack[T]) Iterator() *Iterator[*FloatingDanmaku[T]] {
	index := 0
	return &Iterator[*FloatingDanmaku[T]]{
		hasNext: func() bool { return index < len(t.danmakuList) },
		next: func() *FloatingDanmaku[T] {
			d := t.danmakuList[index]
			index++
			return d
		},
	}
}

// checkPlaceable 检测能否放置，返回新弹幕的放置记录和插入位置
func (t *FloatingTrack[T]) checkPlaceable(danmaku T, placeFrameTimeNanos int64) (*FloatingDanmaku[T], int, bool) {
	checkPlaceTime(placeFrameTimeNanos)
	// 轨道宽度为 0 一定不能放
	if t.geometry.TrackWidth() <= 0 {
		return nil, -1, false
	}
	// 还没到出现时间的弹幕不能放到轨道最右侧之外
	if placeFrameTimeNanos != NotPlaced && t.clock.FrameTimeNanos()-placeFrameTimeNanos < 0 {
		return nil, -1, false
	}

	upcoming := t.createFloating(danmaku, placeFrameTimeNanos)
	// 右侧已经越过轨道左侧的弹幕不放置
	if upcoming.IsGone() {
		return nil, -1, false
	}
	insertionIndex := upcoming.nonOverlappingIndex(t.danmakuList)
	if insertionIndex < 0 {
		return nil, -1, false
	}
	return upcoming, insertionIndex, true
}

func (t *FloatingTrack[T]) createFloating(danmaku T, placeFrameTimeNanos int64) *FloatingDanmaku[T] {
	width := danmaku.DanmakuWidth()
	checkWidth(width)

	speedMultiplier := math.Max(
		math.Pow(t.config.SpeedMultiplier, math.Log2(float64(width)/float64(t.config.BaseSpeedTextWidth))),
		1,
	)
	if fluctuation := t.config.RandomizeSpeedFluctuation; fluctuation != 0 {
		speedMultiplier += (t.randFloat() - 0.5) * 2 * fluctuation
	}

	now := t.clock.FrameTimeNanos()
	upcoming := &FloatingDanmaku[T]{
		Danmaku:             danmaku,
		PlaceFrameTimeNanos: resolvePlaceTime(placeFrameTimeNanos, now),
		SpeedMultiplier:     speedMultiplier,
		track:               t,
	}
	upcoming.baseTimeNanos = upcoming.PlaceFrameTimeNanos
	upcoming.advance(now)
	return upcoming
}

func (t *FloatingTrack[T]) randFloat() float64 {
	if t.config.Rand != nil {
		return t.config.Rand.Float64()
	}
	return rand.Float64()
}

// willClash 撞车检测。previous 在前（Left 更小），next 在后。
//
// 比较 previous 右侧到达轨道左侧的时间与 next 左侧到达轨道左侧的时间：
// 前者更大说明 next 追上 previous 时 previous 还没离开屏幕，会撞车。
// 基础速度在两侧相同，所以只需要比较速度倍率。
func willClash[T SizeSpecified](previous, next *FloatingDanmaku[T]) bool {
	previousRightReachTrackLeftCostTime := previous.Right() / previous.SpeedMultiplier
	nextLeftReachTrackLeftCostTime := next.Left() / next.SpeedMultiplier
	return previousRightReachTrackLeftCostTime > nextLeftReachTrackLeftCostTime
}

// sortedIndex 在按 Left() 升序排列的 list 中找到 left 的插入位置
func sortedIndex[T SizeSpecified](list []*FloatingDanmaku[T], left float64) int {
	index, _ := slices.BinarySearchFunc(list, left, func(d *FloatingDanmaku[T], target float64) int {
		return cmp.Compare(d.Left(), target)
	})
	return index
}

func (t *FloatingTrack[T]) String() string {
	return fmt.Sprintf("FloatingTrack(index=%d, danmakuCount=%d)", t.trackIndex, len(t.danmakuList))
}

// FloatingDanmaku 一条滚动弹幕的放置记录
type FloatingDanmaku[T SizeSpecified] struct {
	Danmaku             T
	PlaceFrameTimeNanos int64
	// SpeedMultiplier 最终速度倍率，与字体大小无关
	SpeedMultiplier float64

	distanceX     float64
	// baseDistance 在 baseTimeNanos 时刻的已滚动距离，修改速度时更新
	baseDistance  float64
	baseTimeNanos int64
	track         *FloatingTrack[T]
}

// TrackIndex 所属轨道序号
func (d *FloatingDanmaku[T]) TrackIndex() int { return d.track.trackIndex }

// DistanceX 弹幕在轨道中已滚动的距离（像素），非负且单调不减
//
// 刚在右侧放置时为 0；左侧到达轨道最左侧时等于轨道宽度。
func (d *FloatingDanmaku[T]) DistanceX() float64 {
	d.advance(d.track.clock.FrameTimeNanos())
	return d.distanceX
}

// Left 弹幕左侧在轨道中的位置
func (d *FloatingDanmaku[T]) Left() float64 {
	return float64(d.track.geometry.TrackWidth()) - d.DistanceX()
}

// Right 弹幕右侧（包含安全间隔）在轨道中的位置
func (d *FloatingDanmaku[T]) Right() float64 {
	return d.Left() + float64(d.Danmaku.DanmakuWidth()) + d.track.config.SafeSeparation
}

// IsGone 弹幕右侧是否已经越过轨道左侧
func (d *FloatingDanmaku[T]) IsGone() bool {
	return d.Right() <= 0
}

// Y 弹幕的纵坐标，每次读取时按当前轨道高度计算
func (d *FloatingDanmaku[T]) Y() float64 {
	return float64(d.track.geometry.TrackHeight() * d.track.trackIndex)
}

// advance 按帧时钟重新计算已滚动距离。时钟回退时保持原距离不变
func (d *FloatingDanmaku[T]) advance(now int64) {
	// 先转换成微秒，避免浮点数的量级过大
	elapsedMicros := elapsedNanos(now, d.baseTimeNanos) / int64(time.Microsecond)
	distance := d.baseDistance + float64(elapsedMicros)/1_000_000*(d.track.config.BaseSpeedPxPerSecond*d.SpeedMultiplier)
	if distance > d.distanceX {
		d.distanceX = distance
	}
}

// rebase 以当前距离为起点重新计时
func (d *FloatingDanmaku[T]) rebase(now int64) {
	d.advance(now)
	d.baseDistance = d.distanceX
	d.baseTimeNanos = now
}

// nonOverlappingIndex 检测此弹幕与 list 中的弹幕是否重叠。
// list 必须按 Left() 升序排列，否则结果不可预测。
//
// 返回的插入位置满足:
//   - 使用 slices.Insert 插入后 list 仍然有序
//   - 在轨道范围内滚动时，此弹幕不会与前一条和后一条弹幕重叠
//
// 有重叠时返回 -1。
func (d *FloatingDanmaku[T]) nonOverlappingIndex(list []*FloatingDanmaku[T]) int {
	if len(list) == 0 {
		return 0
	}

	// fast path: 弹幕左侧已经在所有弹幕的右侧之后
	last := list[len(list)-1]
	if d.Left() >= last.Right() {
		if willClash(last, d) {
			return -1
		}
		return len(list)
	}

	index := sortedIndex(list, d.Left())

	// 当前位置已经与插入点前后的弹幕重叠
	if index < len(list) && d.Right() >= list[index].Left() {
		return -1
	}
	if index > 0 && d.Left() <= list[index-1].Right() {
		return -1
	}

	switch {
	case index >= len(list):
		if willClash(last, d) {
			return -1
		}
		return len(list)
	case index == 0:
		if willClash(d, list[0]) {
			return -1
		}
		return 0
	default:
		if willClash(list[index-1], d) || willClash(d, list[index]) {
			return -1
		}
		return index
	}
}

func (d *FloatingDanmaku[T]) String() string {
	return fmt.Sprintf("FloatingDanmaku(distanceX=%.1f, y=%.1f)", d.distanceX, d.Y())
}
