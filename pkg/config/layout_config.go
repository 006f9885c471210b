package config

// 布局配置常量
// 本文件定义了弹幕覆盖层窗口的默认尺寸

const (
	// OverlayWindowWidth 覆盖层的默认逻辑宽度（像素）
	OverlayWindowWidth = 1280

	// OverlayWindowHeight 覆盖层的默认逻辑高度（像素）
	OverlayWindowHeight = 720
)

// FloatingTrackCount 根据宿主高度计算滚动轨道数量
//
// 参数:
//   - hostHeight: 宿主区域高度（像素）
//   - trackHeight: 单条轨道高度（像素）
//   - displayArea: 滚动弹幕可使用的高度比例 (0, 1]
//
// 返回:
//   - int: 轨道数量，至少为 1（trackHeight 非法时为 0）
func FloatingTrackCount(hostHeight, trackHeight int, displayArea float64) int {
	if trackHeight <= 0 || hostHeight <= 0 {
		return 0
	}
	count := int(float64(hostHeight) * displayArea / float64(trackHeight))
	return max(count, 1)
}
