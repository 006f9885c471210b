package systems

import (
	"cmp"
	"log"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/gonewx/danmaku/pkg/components"
	"github.com/gonewx/danmaku/pkg/config"
	"github.com/gonewx/danmaku/pkg/danmaku"
	"github.com/gonewx/danmaku/pkg/ecs"
)

// DispatchResult 弹幕分配结果
type DispatchResult int

const (
	// DispatchPlaced 已放置到某条轨道
	DispatchPlaced DispatchResult = iota
	// DispatchPending 固定轨道全满，已排队等待显示
	DispatchPending
	// DispatchRejected 没有可用轨道，弹幕被丢弃
	DispatchRejected
	// DispatchDuplicate 与轨道中刚放置的弹幕重复，被丢弃
	DispatchDuplicate
)

// String 返回分配结果名称
func (r DispatchResult) String() string {
	switch r {
	case DispatchPlaced:
		return "placed"
	case DispatchPending:
		return "pending"
	case DispatchDuplicate:
		return "duplicate"
	default:
		return "rejected"
	}
}

// TrackAllocator 轨道分配器系统
//
// 创建所有轨道实体，并为新到达的弹幕选择轨道：
// 按最近最少使用的顺序尝试同类型轨道，第一条能放下的轨道获得这条弹幕。
// 单条轨道的放置规则由 danmaku 包保证，这里只负责选择轨道。
type TrackAllocator struct {
	entityManager *ecs.EntityManager
	clock         danmaku.FrameClock
	geometry      danmaku.TrackGeometry
	config        *config.DanmakuConfig
	rand          *rand.Rand

	floatingEntities []ecs.EntityID
	topEntities      []ecs.EntityID
	bottomEntities   []ecs.EntityID

	pickSerial uint64 // 分配序号，每次成功放置递增
	speedScale float64
}

// NewTrackAllocator 创建新的轨道分配器
//
// 参数:
//   - em: 实体管理器
//   - clock: 帧时钟
//   - geometry: 轨道尺寸状态
//   - cfg: 弹幕配置
//   - r: 速度波动随机源，nil 时使用全局随机源
func NewTrackAllocator(
	em *ecs.EntityManager,
	clock danmaku.FrameClock,
	geometry danmaku.TrackGeometry,
	cfg *config.DanmakuConfig,
	r *rand.Rand,
) *TrackAllocator {
	return &TrackAllocator{
		entityManager: em,
		clock:         clock,
		geometry:      geometry,
		config:        cfg,
		rand:          r,
		speedScale:    1,
	}
}

// InitializeTracks 按配置创建所有轨道实体
func (ta *TrackAllocator) InitializeTracks() {
	floatingCount := ta.config.ResolveFloatingTracks(ta.geometry.HostHeight())
	ta.resizeFloating(floatingCount)

	for i := range ta.config.TopTracks {
		ta.topEntities = append(ta.topEntities, ta.createFixedTrack(i, false))
	}
	for i := range ta.config.BottomTracks {
		ta.bottomEntities = append(ta.bottomEntities, ta.createFixedTrack(i, true))
	}

	log.Printf("[TrackAllocator] Initialized %d floating, %d top, %d bottom tracks",
		len(ta.floatingEntities), len(ta.topEntities), len(ta.bottomEntities))
}

// OnResize 宿主尺寸变化后调整滚动轨道数量
//
// 只有 floatingTracks 配置为 0（按高度自动计算）时才会增减轨道，
// 被移除的轨道上的弹幕随轨道一起丢弃。
func (ta *TrackAllocator) OnResize() {
	if ta.config.FloatingTracks > 0 {
		return
	}
	count := ta.config.ResolveFloatingTracks(ta.geometry.HostHeight())
	if count == len(ta.floatingEntities) {
		return
	}
	log.Printf("[TrackAllocator] Host height %d, floating tracks %d -> %d",
		ta.geometry.HostHeight(), len(ta.floatingEntities), count)
	ta.resizeFloating(count)
}

func (ta *TrackAllocator) resizeFloating(count int) {
	for len(ta.floatingEntities) > count {
		last := ta.floatingEntities[len(ta.floatingEntities)-1]
		ta.entityManager.DestroyEntity(last)
		ta.floatingEntities = ta.floatingEntities[:len(ta.floatingEntities)-1]
	}
	ta.entityManager.RemoveMarkedEntities()

	for i := len(ta.floatingEntities); i < count; i++ {
		ta.floatingEntities = append(ta.floatingEntities, ta.createFloatingTrack(i))
	}
}

func (ta *TrackAllocator) createFloatingTrack(index int) ecs.EntityID {
	trackConfig := ta.config.FloatingTrackConfig(ta.rand)
	trackConfig.BaseSpeedPxPerSecond *= ta.speedScale

	entity := ta.entityManager.CreateEntity()
	ecs.AddComponent(ta.entityManager, entity, &components.FloatingTrackComponent{
		Track: danmaku.NewFloatingTrack[*danmaku.Danmaku](index, ta.clock, ta.geometry, trackConfig),
	})
	ecs.AddComponent(ta.entityManager, entity, &components.TrackStateComponent{
		Kind:       components.TrackKindFloating,
		TrackIndex: index,
	})
	return entity
}

func (ta *TrackAllocator) createFixedTrack(index int, fromBottom bool) ecs.EntityID {
	kind := components.TrackKindTop
	if fromBottom {
		kind = components.TrackKindBottom
	}

	entity := ta.entityManager.CreateEntity()
	ecs.AddComponent(ta.entityManager, entity, &components.FixedTrackComponent{
		Track: danmaku.NewFixedTrack[*danmaku.Danmaku](index, fromBottom, ta.clock, ta.geometry, ta.config.FixedDurationMillis),
	})
	ecs.AddComponent(ta.entityManager, entity, &components.TrackStateComponent{
		Kind:       kind,
		TrackIndex: index,
	})
	return entity
}

// SetSpeedScale 按比例修改所有滚动轨道的基础速度
func (ta *TrackAllocator) SetSpeedScale(scale float64) {
	ta.speedScale = scale
	for _, entity := range ta.floatingEntities {
		if comp, ok := ecs.GetComponent[*components.FloatingTrackComponent](ta.entityManager, entity); ok {
			comp.Track.SetSpeed(ta.config.BaseSpeedPxPerSecond * scale)
		}
	}
}

// FloatingTrackCount 当前滚动轨道数量
func (ta *TrackAllocator) FloatingTrackCount() int {
	return len(ta.floatingEntities)
}

// Dispatch 为一条弹幕选择轨道并放置
//
// 参数:
//   - d: 已测量宽度的弹幕
//   - placeFrameTimeNanos: 放置时间，danmaku.NotPlaced 表示当前帧
func (ta *TrackAllocator) Dispatch(d *danmaku.Danmaku, placeFrameTimeNanos int64) DispatchResult {
	switch d.Location {
	case danmaku.LocationTop:
		return ta.dispatchFixed(ta.topEntities, d, placeFrameTimeNanos)
	case danmaku.LocationBottom:
		return ta.dispatchFixed(ta.bottomEntities, d, placeFrameTimeNanos)
	default:
		return ta.dispatchFloating(d, placeFrameTimeNanos)
	}
}

func (ta *TrackAllocator) dispatchFloating(d *danmaku.Danmaku, placeFrameTimeNanos int64) DispatchResult {
	if ta.config.DuplicateFilter && ta.isBurstDuplicate(d) {
		return DispatchDuplicate
	}

	for _, entity := range ta.leastRecentlyPicked(ta.floatingEntities) {
		comp, ok := ecs.GetComponent[*components.FloatingTrackComponent](ta.entityManager, entity)
		if !ok {
			continue
		}
		if _, placed := comp.Track.TryPlace(d, placeFrameTimeNanos); placed {
			ta.markPicked(entity)
			return DispatchPlaced
		}
	}
	return DispatchRejected
}

// isBurstDuplicate 检查是否有轨道的最后一条弹幕与 d 文本相同且还未完全进入屏幕
func (ta *TrackAllocator) isBurstDuplicate(d *danmaku.Danmaku) bool {
	for _, entity := range ta.floatingEntities {
		comp, ok := ecs.GetComponent[*components.FloatingTrackComponent](ta.entityManager, entity)
		if !ok {
			continue
		}
		last := comp.Track.Last()
		if last == nil || last.Danmaku.Text != d.Text {
			continue
		}
		if last.DistanceX() < float64(last.Danmaku.Width)+ta.config.SafeSeparation {
			return true
		}
	}
	return false
}

func (ta *TrackAllocator) dispatchFixed(entities []ecs.EntityID, d *danmaku.Danmaku, placeFrameTimeNanos int64) DispatchResult {
	ordered := ta.leastRecentlyPicked(entities)
	for _, entity := range ordered {
		comp, ok := ecs.GetComponent[*components.FixedTrackComponent](ta.entityManager, entity)
		if !ok {
			continue
		}
		if _, placed := comp.Track.TryPlace(d, placeFrameTimeNanos); placed {
			ta.markPicked(entity)
			return DispatchPlaced
		}
	}

	if !ta.config.EnablePending || len(ordered) == 0 || ta.expired(placeFrameTimeNanos) {
		return DispatchRejected
	}

	// 所有轨道都满了，排到最久没有被选中的轨道
	entity := ordered[0]
	comp, ok := ecs.GetComponent[*components.FixedTrackComponent](ta.entityManager, entity)
	if !ok {
		return DispatchRejected
	}
	if displaced := comp.Track.SetPending(d); displaced != nil {
		log.Printf("[TrackAllocator] Pending %q forced onto %v", displaced.Danmaku.Text, comp.Track)
	}
	ta.markPicked(entity)
	return DispatchPending
}

// expired 指定了放置时间的固定弹幕是否已经显示完毕
func (ta *TrackAllocator) expired(placeFrameTimeNanos int64) bool {
	if placeFrameTimeNanos == danmaku.NotPlaced {
		return false
	}
	duration := time.Duration(ta.config.FixedDurationMillis) * time.Millisecond
	return ta.clock.FrameTimeNanos()-placeFrameTimeNanos >= int64(duration)
}

// leastRecentlyPicked 按上一次被选中的先后排序，从未被选中的轨道按序号优先
func (ta *TrackAllocator) leastRecentlyPicked(entities []ecs.EntityID) []ecs.EntityID {
	ordered := slices.Clone(entities)
	slices.SortStableFunc(ordered, func(a, b ecs.EntityID) int {
		stateA, _ := ecs.GetComponent[*components.TrackStateComponent](ta.entityManager, a)
		stateB, _ := ecs.GetComponent[*components.TrackStateComponent](ta.entityManager, b)
		if stateA == nil || stateB == nil {
			return 0
		}
		if c := cmp.Compare(stateA.LastPicked, stateB.LastPicked); c != 0 {
			return c
		}
		return cmp.Compare(stateA.TrackIndex, stateB.TrackIndex)
	})
	return ordered
}

func (ta *TrackAllocator) markPicked(entity ecs.EntityID) {
	state, ok := ecs.GetComponent[*components.TrackStateComponent](ta.entityManager, entity)
	if !ok {
		return
	}
	ta.pickSerial++
	state.LastPicked = ta.pickSerial
	state.PlacedCount++
}
