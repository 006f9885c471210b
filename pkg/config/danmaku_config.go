package config

import (
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/gonewx/danmaku/pkg/danmaku"
	"gopkg.in/yaml.v3"
)

// DanmakuConfig 弹幕轨道配置
//
// 配置文件位置: data/danmaku.yaml
// 未出现在配置文件中的字段保留 DefaultDanmakuConfig 中的默认值。
type DanmakuConfig struct {
	// TrackHeight 单条轨道高度（像素）
	TrackHeight int `yaml:"trackHeight"`

	// FloatingTracks 滚动轨道数量，为 0 时按 DisplayArea 和窗口高度计算
	FloatingTracks int `yaml:"floatingTracks"`

	// TopTracks 顶部固定轨道数量
	TopTracks int `yaml:"topTracks"`

	// BottomTracks 底部固定轨道数量
	BottomTracks int `yaml:"bottomTracks"`

	// DisplayArea 滚动弹幕可使用的屏幕高度比例 (0, 1]
	DisplayArea float64 `yaml:"displayArea"`

	// BaseSpeedPxPerSecond 滚动弹幕基础速度（像素/秒）
	BaseSpeedPxPerSecond float64 `yaml:"baseSpeedPxPerSecond"`

	// SafeSeparation 滚动弹幕之间的最小间隔（像素）
	SafeSeparation float64 `yaml:"safeSeparation"`

	// BaseSpeedTextWidth 基础文本宽度（像素），更宽的弹幕会加速
	BaseSpeedTextWidth int `yaml:"baseSpeedTextWidth"`

	// SpeedMultiplier 弹幕宽度为 2 倍基础文本宽度时的速度倍率
	SpeedMultiplier float64 `yaml:"speedMultiplier"`

	// SpeedFluctuation 速度随机波动范围，为 0 时不波动
	SpeedFluctuation float64 `yaml:"speedFluctuation"`

	// FixedDurationMillis 顶部/底部弹幕显示时长（毫秒）
	FixedDurationMillis int64 `yaml:"fixedDurationMillis"`

	// EnablePending 固定轨道全部占满时是否排队等待显示
	EnablePending bool `yaml:"enablePending"`

	// DuplicateFilter 是否丢弃与轨道最后一条弹幕相同、且该弹幕还未完全进入屏幕的滚动弹幕
	DuplicateFilter bool `yaml:"duplicateFilter"`
}

// DefaultDanmakuConfig 返回默认配置
func DefaultDanmakuConfig() *DanmakuConfig {
	return &DanmakuConfig{
		TrackHeight:          36,
		FloatingTracks:       0,
		TopTracks:            3,
		BottomTracks:         3,
		DisplayArea:          0.5,
		BaseSpeedPxPerSecond: 200,
		SafeSeparation:       48,
		BaseSpeedTextWidth:   270,
		SpeedMultiplier:      1.14,
		SpeedFluctuation:     danmaku.DefaultSpeedFluctuation,
		FixedDurationMillis:  5000,
		EnablePending:        true,
		DuplicateFilter:      true,
	}
}

// LoadDanmakuConfig 加载弹幕配置
//
// 参数:
//   - path: 配置文件路径（如 "data/danmaku.yaml"）
//
// 返回:
//   - *DanmakuConfig: 加载成功后的配置结构
//   - error: 读取、解析或验证失败时返回错误
func LoadDanmakuConfig(path string) (*DanmakuConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read danmaku config %s: %w", path, err)
	}
	return ParseDanmakuConfig(data)
}

// ParseDanmakuConfig 从 YAML 数据解析弹幕配置
func ParseDanmakuConfig(data []byte) (*DanmakuConfig, error) {
	config := DefaultDanmakuConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse danmaku config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid danmaku config: %w", err)
	}

	return config, nil
}

// Validate 验证配置有效性
func (c *DanmakuConfig) Validate() error {
	if c.TrackHeight <= 0 {
		return fmt.Errorf("trackHeight must be positive, got %d", c.TrackHeight)
	}
	if c.FloatingTracks < 0 || c.TopTracks < 0 || c.BottomTracks < 0 {
		return fmt.Errorf("track counts must be non-negative, got floating=%d top=%d bottom=%d",
			c.FloatingTracks, c.TopTracks, c.BottomTracks)
	}
	if c.DisplayArea <= 0 || c.DisplayArea > 1 {
		return fmt.Errorf("displayArea must be in (0, 1], got %.3f", c.DisplayArea)
	}
	if c.BaseSpeedPxPerSecond <= 0 {
		return fmt.Errorf("baseSpeedPxPerSecond must be positive, got %.1f", c.BaseSpeedPxPerSecond)
	}
	if c.SafeSeparation < 0 {
		return fmt.Errorf("safeSeparation must be non-negative, got %.1f", c.SafeSeparation)
	}
	if c.BaseSpeedTextWidth <= 0 {
		return fmt.Errorf("baseSpeedTextWidth must be positive, got %d", c.BaseSpeedTextWidth)
	}
	if c.SpeedMultiplier <= 0 {
		return fmt.Errorf("speedMultiplier must be positive, got %.3f", c.SpeedMultiplier)
	}
	// 波动范围不能让速度倍率降到 0 以下
	if c.SpeedFluctuation < 0 || c.SpeedFluctuation >= 1 {
		return fmt.Errorf("speedFluctuation must be in [0, 1), got %.4f", c.SpeedFluctuation)
	}
	if c.FixedDurationMillis <= 0 {
		return fmt.Errorf("fixedDurationMillis must be positive, got %d", c.FixedDurationMillis)
	}
	return nil
}

// FloatingTrackConfig 转换为滚动轨道参数
//
// 参数:
//   - r: 速度波动随机源，nil 时使用全局随机源
func (c *DanmakuConfig) FloatingTrackConfig(r *rand.Rand) danmaku.FloatingTrackConfig {
	return danmaku.FloatingTrackConfig{
		BaseSpeedPxPerSecond:      c.BaseSpeedPxPerSecond,
		SafeSeparation:            c.SafeSeparation,
		BaseSpeedTextWidth:        c.BaseSpeedTextWidth,
		SpeedMultiplier:           c.SpeedMultiplier,
		RandomizeSpeedFluctuation: c.SpeedFluctuation,
		Rand:                      r,
	}
}

// ResolveFloatingTracks 返回实际的滚动轨道数量
func (c *DanmakuConfig) ResolveFloatingTracks(hostHeight int) int {
	if c.FloatingTracks > 0 {
		return c.FloatingTracks
	}
	return FloatingTrackCount(hostHeight, c.TrackHeight, c.DisplayArea)
}
