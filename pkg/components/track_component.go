package components

import "github.com/gonewx/danmaku/pkg/danmaku"

// TrackKind 轨道类型
type TrackKind int

const (
	// TrackKindFloating 滚动轨道
	TrackKindFloating TrackKind = iota
	// TrackKindTop 顶部固定轨道
	TrackKindTop
	// TrackKindBottom 底部固定轨道
	TrackKindBottom
)

// String 返回轨道类型名称
func (k TrackKind) String() string {
	switch k {
	case TrackKindTop:
		return "top"
	case TrackKindBottom:
		return "bottom"
	default:
		return "floating"
	}
}

// FloatingTrackComponent 滚动轨道组件
type FloatingTrackComponent struct {
	Track *danmaku.FloatingTrack[*danmaku.Danmaku]
}

// FixedTrackComponent 顶部/底部固定轨道组件
type FixedTrackComponent struct {
	Track *danmaku.FixedTrack[*danmaku.Danmaku]
}
