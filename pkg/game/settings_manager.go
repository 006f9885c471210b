package game

import (
	"fmt"
	"log"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"
)

// DanmakuSettings 弹幕显示设置
type DanmakuSettings struct {
	Enabled    bool    `yaml:"enabled"`    // 是否显示弹幕
	Opacity    float64 `yaml:"opacity"`    // 不透明度 0.0 ~ 1.0
	SpeedScale float64 `yaml:"speedScale"` // 滚动速度缩放 0.25 ~ 4.0
	ShowTop    bool    `yaml:"showTop"`    // 显示顶部弹幕
	ShowBottom bool    `yaml:"showBottom"` // 显示底部弹幕
}

// DefaultSettings 返回默认设置
func DefaultSettings() *DanmakuSettings {
	return &DanmakuSettings{
		Enabled:    true,
		Opacity:    1.0,
		SpeedScale: 1.0,
		ShowTop:    true,
		ShowBottom: true,
	}
}

// SettingsManager 设置管理器
// 负责弹幕设置的加载、保存和内存管理
type SettingsManager struct {
	gdataManager *gdata.Manager   // gdata 跨平台存储管理器，可为 nil（降级模式）
	settings     *DanmakuSettings // 当前设置
}

// 存储路径常量
const (
	settingsObject   = "settings"
	settingsProperty = "danmaku"
)

// 速度缩放范围
const (
	minSpeedScale = 0.25
	maxSpeedScale = 4.0
)

// NewSettingsManager 创建新的设置管理器实例
//
// 参数：
//   - gdataManager: gdata 跨平台存储管理器，可为 nil（降级模式，仅内存设置）
//
// 加载失败不是致命错误，会记录日志并使用默认设置。
func NewSettingsManager(gdataManager *gdata.Manager) *SettingsManager {
	sm := &SettingsManager{
		gdataManager: gdataManager,
		settings:     DefaultSettings(),
	}

	if err := sm.Load(); err != nil {
		log.Printf("[SettingsManager] Warning: Failed to load settings: %v (using defaults)", err)
	}

	return sm
}

// Load 从 gdata 加载设置
//
// 如果 gdataManager 为 nil 或数据不存在，使用默认设置
func (sm *SettingsManager) Load() error {
	// 降级模式：无法持久化，使用默认设置
	if sm.gdataManager == nil {
		sm.settings = DefaultSettings()
		return nil
	}

	if !sm.gdataManager.ObjectPropExists(settingsObject, settingsProperty) {
		sm.settings = DefaultSettings()
		return nil
	}

	data, err := sm.gdataManager.LoadObjectProp(settingsObject, settingsProperty)
	if err != nil {
		sm.settings = DefaultSettings()
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// 从默认值开始反序列化，旧版本存档缺失的字段保留默认值
	loaded := DefaultSettings()
	if err := yaml.Unmarshal(data, loaded); err != nil {
		sm.settings = DefaultSettings()
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	loaded.Opacity = clampUnit(loaded.Opacity)
	loaded.SpeedScale = clampSpeedScale(loaded.SpeedScale)

	sm.settings = loaded
	log.Printf("[SettingsManager] Settings loaded successfully")
	return nil
}

// Save 保存设置到 gdata
//
// 如果 gdataManager 为 nil，返回 nil（降级模式，不报错）
func (sm *SettingsManager) Save() error {
	if sm.gdataManager == nil {
		return nil
	}

	data, err := yaml.Marshal(sm.settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := sm.gdataManager.SaveObjectProp(settingsObject, settingsProperty, data); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	log.Printf("[SettingsManager] Settings saved successfully")
	return nil
}

// GetSettings 获取当前设置
func (sm *SettingsManager) GetSettings() *DanmakuSettings {
	return sm.settings
}

// SetEnabled 设置弹幕开关
//
// 注意：仅修改内存中的设置，需调用 Save() 方法持久化
func (sm *SettingsManager) SetEnabled(enabled bool) {
	sm.settings.Enabled = enabled
}

// SetOpacity 设置不透明度，限制在 0.0 ~ 1.0 范围内
func (sm *SettingsManager) SetOpacity(opacity float64) {
	sm.settings.Opacity = clampUnit(opacity)
}

// SetSpeedScale 设置速度缩放，限制在 0.25 ~ 4.0 范围内
func (sm *SettingsManager) SetSpeedScale(scale float64) {
	sm.settings.SpeedScale = clampSpeedScale(scale)
}

// SetShowTop 设置是否显示顶部弹幕
func (sm *SettingsManager) SetShowTop(show bool) {
	sm.settings.ShowTop = show
}

// SetShowBottom 设置是否显示底部弹幕
func (sm *SettingsManager) SetShowBottom(show bool) {
	sm.settings.ShowBottom = show
}

func clampUnit(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

func clampSpeedScale(v float64) float64 {
	if v < minSpeedScale {
		return minSpeedScale
	}
	if v > maxSpeedScale {
		return maxSpeedScale
	}
	return v
}
