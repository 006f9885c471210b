package systems

import (
	"github.com/gonewx/danmaku/pkg/components"
	"github.com/gonewx/danmaku/pkg/ecs"
)

// DanmakuTickSystem 每帧驱动所有轨道的逻辑帧
//
// 必须在帧时钟推进之后、放置新弹幕之前调用 Update。
type DanmakuTickSystem struct {
	entityManager *ecs.EntityManager
}

// NewDanmakuTickSystem 创建轨道逻辑帧系统
func NewDanmakuTickSystem(em *ecs.EntityManager) *DanmakuTickSystem {
	return &DanmakuTickSystem{
		entityManager: em,
	}
}

// Update 移除所有轨道中过期或已经离开屏幕的弹幕
func (s *DanmakuTickSystem) Update() {
	for _, id := range ecs.GetEntitiesWith1[*components.FloatingTrackComponent](s.entityManager) {
		if comp, ok := ecs.GetComponent[*components.FloatingTrackComponent](s.entityManager, id); ok {
			comp.Track.Tick()
		}
	}
	for _, id := range ecs.GetEntitiesWith1[*components.FixedTrackComponent](s.entityManager) {
		if comp, ok := ecs.GetComponent[*components.FixedTrackComponent](s.entityManager, id); ok {
			comp.Track.Tick()
		}
	}
}

// ClearAll 清空所有轨道（例如视频跳转后），固定轨道中排队的弹幕也一并丢弃
func (s *DanmakuTickSystem) ClearAll() {
	for _, id := range ecs.GetEntitiesWith1[*components.FloatingTrackComponent](s.entityManager) {
		if comp, ok := ecs.GetComponent[*components.FloatingTrackComponent](s.entityManager, id); ok {
			comp.Track.ClearAll()
		}
	}
	for _, id := range ecs.GetEntitiesWith1[*components.FixedTrackComponent](s.entityManager) {
		if comp, ok := ecs.GetComponent[*components.FixedTrackComponent](s.entityManager, id); ok {
			comp.Track.ClearAll()
			comp.Track.ClearPending()
		}
	}
}

// ActiveCount 当前显示中的弹幕数量
func (s *DanmakuTickSystem) ActiveCount() int {
	count := 0
	for _, id := range ecs.GetEntitiesWith1[*components.FloatingTrackComponent](s.entityManager) {
		if comp, ok := ecs.GetComponent[*components.FloatingTrackComponent](s.entityManager, id); ok {
			count += comp.Track.Len()
		}
	}
	for _, id := range ecs.GetEntitiesWith1[*components.FixedTrackComponent](s.entityManager) {
		if comp, ok := ecs.GetComponent[*components.FixedTrackComponent](s.entityManager, id); ok {
			count += comp.Track.Len()
		}
	}
	return count
}
