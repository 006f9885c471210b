package components

// TrackStateComponent 轨道选取状态组件
//
// 用于最近最少使用的轨道分配，存储每条轨道上一次被选中的时刻
type TrackStateComponent struct {
	Kind        TrackKind // 轨道类型
	TrackIndex  int       // 同类型轨道中的序号（从 0 开始）
	LastPicked  uint64    // 上一次被选中时的分配序号，0 表示从未被选中
	PlacedCount int       // 累计放置的弹幕数量
}
