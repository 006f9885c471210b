package systems

import (
	"github.com/gonewx/danmaku/pkg/components"
	"github.com/gonewx/danmaku/pkg/danmaku"
	"github.com/gonewx/danmaku/pkg/ecs"
)

// DanmakuRenderer 渲染后端
//
// x, y 是弹幕左上角在宿主区域中的坐标（像素）。
type DanmakuRenderer interface {
	DrawDanmaku(d *danmaku.Danmaku, x, y float64)
}

// DanmakuRenderSystem 遍历所有轨道，把每条弹幕的位置交给渲染后端
//
// 遍历使用轨道的实时视图，必须与 Tick 和放置在同一个 goroutine 中调用。
type DanmakuRenderSystem struct {
	entityManager *ecs.EntityManager

	showFloating bool
	showTop      bool
	showBottom   bool
}

// NewDanmakuRenderSystem 创建弹幕渲染系统
func NewDanmakuRenderSystem(em *ecs.EntityManager) *DanmakuRenderSystem {
	return &DanmakuRenderSystem{
		entityManager: em,
		showFloating:  true,
		showTop:       true,
		showBottom:    true,
	}
}

// SetVisibility 设置各类型弹幕是否绘制
func (s *DanmakuRenderSystem) SetVisibility(showFloating, showTop, showBottom bool) {
	s.showFloating = showFloating
	s.showTop = showTop
	s.showBottom = showBottom
}

// Draw 绘制所有可见弹幕，返回绘制的数量
//
// 先绘制滚动弹幕，再绘制固定弹幕，固定弹幕始终在上层。
func (s *DanmakuRenderSystem) Draw(renderer DanmakuRenderer) int {
	drawn := 0

	if s.showFloating {
		for _, id := range ecs.GetEntitiesWith1[*components.FloatingTrackComponent](s.entityManager) {
			comp, ok := ecs.GetComponent[*components.FloatingTrackComponent](s.entityManager, id)
			if !ok {
				continue
			}
			for d := range comp.Track.All() {
				renderer.DrawDanmaku(d.Danmaku, d.Left(), d.Y())
				drawn++
			}
		}
	}

	for _, id := range ecs.GetEntitiesWith1[*components.FixedTrackComponent](s.entityManager) {
		comp, ok := ecs.GetComponent[*components.FixedTrackComponent](s.entityManager, id)
		if !ok {
			continue
		}
		if comp.Track.FromBottom() && !s.showBottom || !comp.Track.FromBottom() && !s.showTop {
			continue
		}
		for d := range comp.Track.All() {
			renderer.DrawDanmaku(d.Danmaku, d.X(), d.Y())
			drawn++
		}
	}

	return drawn
}
